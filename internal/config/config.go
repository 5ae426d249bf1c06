package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// EnvPrefix prefix of environment overrides
const EnvPrefix = "EYELUXE_"

type SysConfig struct {
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
}

type WebConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DBConfig document store settings. Path is used by bolt, the rest by postgres.
type DBConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Name          string `yaml:"name"`
	User          string `yaml:"user"`
	Passwd        string `yaml:"passwd"`
	MaxTxAttempts int    `yaml:"max_tx_attempts"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type ReportConfig struct {
	WeekStart         string `yaml:"week_start"`
	ExpiryWindowDays  int    `yaml:"expiry_window_days"`
	LowStockThreshold int64  `yaml:"low_stock_threshold"`
}

// JobConfig cron specs; an empty spec disables the job
type JobConfig struct {
	AlertCron  string `yaml:"alert_cron"`
	BackupCron string `yaml:"backup_cron"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system"`
	Web      WebConfig    `yaml:"web"`
	Database DBConfig     `yaml:"database"`
	Logger   LogConfig    `yaml:"logger"`
	Reports  ReportConfig `yaml:"reports"`
	Jobs     JobConfig    `yaml:"jobs"`
}

// Addr listen address of the web server
func (c *AppConfig) Addr() string {
	return c.Web.Host + ":" + cast.ToString(c.Web.Port)
}

// DSN postgres connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + cast.ToString(d.Port) +
		" user=" + d.User +
		" password=" + d.Passwd +
		" dbname=" + d.Name +
		" sslmode=disable"
}

// BoltPath bolt file location, relative paths resolve against workdir
func (c *AppConfig) BoltPath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.System.Workdir, c.Database.Path)
}

// BackupDir directory the backup job writes to
func (c *AppConfig) BackupDir() string {
	return filepath.Join(c.System.Workdir, "backups")
}

// WeekStartDay configured first day of the week, Sunday when unset
func (r ReportConfig) WeekStartDay() time.Weekday {
	day, _ := parseWeekday(r.WeekStart)
	return day
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, true
	}
	d, ok := weekdays[s]
	return d, ok
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Location: "Asia/Kolkata",
			Workdir:  "/var/eyeluxe",
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 9091,
		},
		Database: DBConfig{
			Type:          StoreBolt,
			Path:          "eyeluxe.db",
			Host:          "127.0.0.1",
			Port:          5432,
			Name:          "eyeluxe",
			User:          "postgres",
			MaxTxAttempts: 5,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/eyeluxe/eyeluxe.log",
		},
		Reports: ReportConfig{
			WeekStart:         "sunday",
			ExpiryWindowDays:  30,
			LowStockThreshold: 2,
		},
		Jobs: JobConfig{
			AlertCron:  "0 9 * * *",
			BackupCron: "@daily",
		},
	}
}

// LoadConfig reads defaults, then the yaml file (when it exists), then .env and
// EYELUXE_* environment variables. The result is validated.
func LoadConfig(file string) (*AppConfig, error) {
	cfg := defaultConfig()
	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse %s", file)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read %s", file)
		}
	}
	// a missing .env is fine
	_ = godotenv.Load()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.System.Location, "SYSTEM_LOCATION")
	setString(&cfg.System.Workdir, "SYSTEM_WORKDIR")
	setString(&cfg.Web.Host, "WEB_HOST")
	setInt(&cfg.Web.Port, "WEB_PORT")
	if v, ok := lookup("WEB_CORS_ORIGINS"); ok {
		cfg.Web.CORSOrigins = splitList(v)
	}
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Passwd, "DB_PWD")
	setInt(&cfg.Database.MaxTxAttempts, "DB_MAX_TX_ATTEMPTS")
	setString(&cfg.Logger.Mode, "LOGGER_MODE")
	if v, ok := lookup("LOGGER_FILE_ENABLE"); ok {
		cfg.Logger.FileEnable = cast.ToBool(v)
	}
	setString(&cfg.Logger.Filename, "LOGGER_FILENAME")
	setString(&cfg.Reports.WeekStart, "REPORTS_WEEK_START")
	setInt(&cfg.Reports.ExpiryWindowDays, "REPORTS_EXPIRY_WINDOW_DAYS")
	if v, ok := lookup("REPORTS_LOW_STOCK_THRESHOLD"); ok {
		cfg.Reports.LowStockThreshold = cast.ToInt64(v)
	}
	setString(&cfg.Jobs.AlertCron, "JOBS_ALERT_CRON")
	setString(&cfg.Jobs.BackupCron, "JOBS_BACKUP_CRON")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	return strings.TrimSpace(v), ok
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		*dst = cast.ToInt(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate rejects configurations the application cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Database.Type {
	case StoreMemory:
	case StoreBolt:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the bolt store")
		}
	case StorePostgres:
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return errors.New("database host, name and user are required for the postgres store")
		}
	default:
		return errors.Errorf("unknown database type %q", c.Database.Type)
	}
	if c.Database.MaxTxAttempts < 1 {
		return errors.New("database.max_tx_attempts must be at least 1")
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errors.Errorf("invalid web port %d", c.Web.Port)
	}
	if _, ok := parseWeekday(c.Reports.WeekStart); !ok {
		return errors.Errorf("unknown reports.week_start %q", c.Reports.WeekStart)
	}
	if c.Reports.ExpiryWindowDays < 0 {
		return errors.New("reports.expiry_window_days must not be negative")
	}
	if c.Logger.FileEnable && c.Logger.Filename == "" {
		return errors.New("logger.filename is required when file logging is enabled")
	}
	if _, err := time.LoadLocation(c.System.Location); err != nil {
		return errors.Wrapf(err, "system.location %q", c.System.Location)
	}
	return nil
}
