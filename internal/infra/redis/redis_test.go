package redis

import (
	"testing"

	"github.com/sifan077/ShortcutURL/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{})
	if opts.Addr != "localhost:6379" || opts.DB != 0 {
		t.Fatalf("defaults = %s db=%d", opts.Addr, opts.DB)
	}

	opts = Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	if opts.Addr != "cache:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("options = %+v", opts)
	}
}
