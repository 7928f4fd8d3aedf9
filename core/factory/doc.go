// Package factory provides a small generic registry used to instantiate
// connectors and plugins from configuration. Modules are defined by a type
// string and a map of raw settings. Factories decode the settings into typed
// structs and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[string, io.Reader]()
//	reg.Register("file", func(dir string, conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(filepath.Join(dir, c.Path))
//	})
//	r, err := reg.Create("/etc", factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "foo"}})
package factory
