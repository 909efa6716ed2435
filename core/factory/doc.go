// Package factory provides a small generic registry used to instantiate
// backends from configuration. A backend is named by a type string and
// carries a map of raw settings that its factory decodes into a typed struct.
//
//	reg := factory.NewRegistry[state.VariableStore]()
//	reg.Register("sqlite", func(conf map[string]any) (state.VariableStore, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return store.NewSQLiteStore(c.Path)
//	})
//	vars, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "vars.db"}})
package factory
