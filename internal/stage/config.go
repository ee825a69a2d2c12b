package stage

// Options is the stage configuration as far as the controller understands
// it. The host-supplied config is advisory: wrong types fall back to
// defaults instead of failing.
type Options struct {
	// PersistKeys are echoed in every snapshot in addition to SeedKey.
	PersistKeys []string
	// ParseStats turns on extraction of "*Label: value" lines.
	ParseStats bool
}

// ParseOptions reads Options out of an untyped config map.
func ParseOptions(cfg map[string]any) Options {
	var o Options
	if b, ok := cfg["parse_stats"].(bool); ok {
		o.ParseStats = b
	}
	switch keys := cfg["persist_keys"].(type) {
	case []string:
		o.PersistKeys = append(o.PersistKeys, keys...)
	case []any:
		for _, k := range keys {
			if s, ok := k.(string); ok && s != "" {
				o.PersistKeys = append(o.PersistKeys, s)
			}
		}
	}
	return o
}
