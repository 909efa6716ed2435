// Package infra groups the adapters behind the core interfaces: the MQTT
// device gateway, the price feed, variable stores, metrics sinks, Sentry
// monitoring and the price chart.
package infra
