package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mrlokans/highlights/internal/applebooks"
)

type (
	Config struct {
		AppleBooks
		Export
		Archive
		Sync
		Log
	}

	AppleBooks struct {
		Container    string // Apple Books documents directory searched when a path is empty
		AnnotationDB string
		BookDB       string
	}
	Export struct {
		Dir string // Directory for markdown exports
	}
	Archive struct {
		Path string // Snapshot database; empty disables archiving
	}
	Sync struct {
		Schedule string // Cron format: "0 * * * *" = hourly
		Watch    bool
		Debounce time.Duration
	}
	Log struct {
		Level string
	}
)

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"annotation-db": "annotation_db",
	"book-db":       "book_db",
	"container":     "applebooks_container",
	"output":        "export_dir",
	"archive":       "archive_path",
	"schedule":      "sync_schedule",
	"watch":         "sync_watch",
	"debounce":      "sync_debounce",
	"log-level":     "log_level",
}

// NewConfig reads configuration from flags, the environment and defaults,
// in that order of precedence. Flags that are absent from the set are ignored.
func NewConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	container, err := applebooks.DefaultContainer()
	if err != nil {
		container = ""
	}

	v.SetDefault("applebooks_container", container)
	v.SetDefault("annotation_db", "")
	v.SetDefault("book_db", "")
	v.SetDefault("export_dir", DefaultExportDir)
	v.SetDefault("archive_path", "")
	v.SetDefault("sync_schedule", DefaultSyncSchedule)
	v.SetDefault("sync_watch", false)
	v.SetDefault("sync_debounce", DefaultSyncDebounce)
	v.SetDefault("log_level", DefaultLogLevel)

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	return &Config{
		AppleBooks: AppleBooks{
			Container:    v.GetString("APPLEBOOKS_CONTAINER"),
			AnnotationDB: v.GetString("ANNOTATION_DB"),
			BookDB:       v.GetString("BOOK_DB"),
		},
		Export: Export{
			Dir: v.GetString("EXPORT_DIR"),
		},
		Archive: Archive{
			Path: v.GetString("ARCHIVE_PATH"),
		},
		Sync: Sync{
			Schedule: v.GetString("SYNC_SCHEDULE"),
			Watch:    v.GetBool("SYNC_WATCH"),
			Debounce: v.GetDuration("SYNC_DEBOUNCE"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
		},
	}, nil
}
