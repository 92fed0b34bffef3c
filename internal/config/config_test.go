package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "MODEL_BACKEND", "MODEL_TIMEOUT", "AMQP_URL", "TIMEZONE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.ModelBackend != "linear" || c.ModelTimeout != 30*time.Second || c.AMQPURL != "" {
		t.Fatalf("unexpected model/amqp defaults: %+v", c)
	}
	if c.Location == nil {
		t.Fatal("location must default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("MODEL_BACKEND", "remote")
	t.Setenv("MODEL_TIMEOUT", "5s")
	t.Setenv("MODEL_DAY_OFFSET", "yes")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("TIMEZONE", "UTC")
	c := FromEnv()
	if c.Mode != ModeOnline || c.ModelBackend != "remote" || c.ModelTimeout != 5*time.Second || !c.ModelDayOffset {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(c.CORSOriginsOnline, want) {
		t.Fatalf("cors = %v", c.CORSOriginsOnline)
	}
	if c.Location != time.UTC {
		t.Fatalf("location = %v", c.Location)
	}
}
