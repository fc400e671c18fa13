package mscconfig

import "reflect"

// Redacted returns a copy of the config with every field tagged
// `sensitive:"true"` masked, suitable for logging the effective config at
// startup.
//
// Grounded on config.Config.Redacted's reflect-based walk.
func (c *Config) Redacted() Config {
	redacted := *c
	redactSensitiveFields(reflect.ValueOf(&redacted).Elem())
	return redacted
}

func redactSensitiveFields(v reflect.Value) {
	if !v.IsValid() || !v.CanSet() {
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			fieldType := t.Field(i)
			if fieldType.Tag.Get("sensitive") == "true" {
				if field.Kind() == reflect.String && field.String() != "" {
					field.SetString("***REDACTED***")
				}
				continue
			}
			redactSensitiveFields(field)
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			redactSensitiveFields(v.Index(i))
		}
	}
}
