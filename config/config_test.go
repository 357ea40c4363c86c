package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"API_PORT", "LOG_LEVEL", "DB_DRIVER", "DB_PORT", "DB_PATH", "REDIS_HOST",
		"CACHE_TTL", "BLOB_BACKEND", "UPLOAD_DIR", "MAX_UPLOAD_SIZE", "MINIO_BUCKET", "MINIO_USE_SSL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != 8080 || cfg.Database.Driver != "mysql" || cfg.Database.Port != 3306 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Blob.Backend != "local" || cfg.Blob.UploadDir != "./uploads" || cfg.Blob.Minio.Bucket != "notices" {
		t.Errorf("blob = %+v", cfg.Blob)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.MaxUploadSize != 10<<20 {
		t.Errorf("ttl = %v max upload = %d", cfg.CacheTTL, cfg.MaxUploadSize)
	}
	if cfg.Redis.Host != "" {
		t.Errorf("redis should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("BLOB_BACKEND", "minio")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_UPLOAD_SIZE", "2048")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("postgres default port = %d", cfg.Database.Port)
	}
	if cfg.CacheTTL != 30*time.Second || cfg.MaxUploadSize != 2048 || !cfg.Blob.Minio.UseSSL {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	for key, value := range map[string]string{"DB_DRIVER": "oracle", "BLOB_BACKEND": "ftp"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", key, value)
			}
		})
	}
}
