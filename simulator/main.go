// Command simulator publishes the readings of a simulated home installation
// over MQTT and answers charger commands, for running smartcharge without
// hardware.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/smartcharge/infra/logger"
	"github.com/kilianp07/smartcharge/infra/mqtt"
)

var log = logger.New("simulator")

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(2)
	}
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	_ = logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := connect(cfg.Broker)
	if err != nil {
		log.Errorf("mqtt connect: %v", err)
		os.Exit(1)
	}
	defer cli.Disconnect(250)

	site := NewSite(cfg)
	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	if err := site.Run(ctx, cli, strat); err != nil {
		log.Errorf("simulator: %v", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.Prefix, "topic-prefix", mqtt.DefaultPrefix, "MQTT topic prefix")
	flag.StringVar(&cfg.ChargerID, "charger", "easee", "charger device id")
	flag.StringVar(&cfg.MeterID, "meter", "meter", "meter device id")
	flag.StringVar(&cfg.CarID, "car", "car", "car device id")
	flag.Float64Var(&cfg.CapacityKWh, "capacity", 75, "battery capacity kWh")
	flag.Float64Var(&cfg.InitialSoC, "soc", 0.3, "initial state of charge [0,1]")
	flag.IntVar(&cfg.Phases, "phases", 3, "charger phases (1 or 3)")
	flag.Float64Var(&cfg.Voltage, "voltage", 230, "phase voltage")
	flag.Float64Var(&cfg.MaxCurrent, "max-current", 16, "charger max current per phase")
	flag.Float64Var(&cfg.Ceiling, "ceiling", 16, "installation current ceiling reported by the charger")
	flag.Float64Var(&cfg.HouseLoad, "house-load", 4, "household current per phase")
	flag.DurationVar(&cfg.Interval, "interval", 10*time.Second, "state publish interval")
	flag.Float64Var(&cfg.Speedup, "speedup", 1, "simulated time per wall clock time")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func connect(broker string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("smartcharge-sim")
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
