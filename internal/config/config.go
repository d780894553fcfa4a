// Package config loads the honeypot configuration. Values are layered:
// built-in defaults, then an optional YAML file, then HONEYSHELL_*
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultDBPath           = "honeyshell.db"
	DefaultCredentialTTL    = 7 * 24 * time.Hour
	DefaultBind             = "127.0.0.1#8022"
	DefaultLoginProbability = 0.1329459110265233
	DefaultHostname         = "localhost"
	DefaultServerVersion    = "OpenSSH_7.4p1 Debian-10+deb9u6"
	DefaultAdminAddr        = "127.0.0.1:9022"
)

// Config holds the honeypot configuration. Binds are normalised host:port
// listen addresses. An empty AdminAddr disables the admin API.
type Config struct {
	LogLevel         string
	LogFormat        string
	DBPath           string
	CredentialTTL    time.Duration
	Binds            []string
	BannerFile       string
	HostKeys         []string
	LoginProbability float64
	Hostname         string
	ServerVersion    string
	AcceptPublicKeys bool
	AdminAddr        string
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// fileConfig mirrors Config in the YAML file. Absent keys keep earlier values.
type fileConfig struct {
	LogLevel         *string  `yaml:"log_level"`
	LogFormat        *string  `yaml:"log_format"`
	DBPath           *string  `yaml:"db_path"`
	CredentialTTL    *string  `yaml:"credential_ttl"`
	Binds            []string `yaml:"binds"`
	BannerFile       *string  `yaml:"banner_file"`
	HostKeys         []string `yaml:"host_keys"`
	LoginProbability *float64 `yaml:"login_probability"`
	Hostname         *string  `yaml:"hostname"`
	ServerVersion    *string  `yaml:"server_version"`
	AcceptPublicKeys *bool    `yaml:"accept_public_keys"`
	AdminAddr        *string  `yaml:"admin_addr"`
}

// rawConfig holds values before parsing and validation.
type rawConfig struct {
	logLevel, logFormat, dbPath, ttl       string
	binds, hostKeys                        []string
	bannerFile, probability                string
	hostname, serverVersion, acceptPubKeys string
	adminAddr                              string
}

// Load builds the configuration from args (without the program name) and the
// process environment. A -h/--help flag returns pflag.ErrHelp.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("honeyshell", pflag.ContinueOnError)
	flags := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	raw := rawConfig{
		logLevel:      DefaultLogLevel,
		logFormat:     DefaultLogFormat,
		dbPath:        DefaultDBPath,
		ttl:           DefaultCredentialTTL.String(),
		binds:         []string{DefaultBind},
		probability:   strconv.FormatFloat(DefaultLoginProbability, 'g', -1, 64),
		hostname:      DefaultHostname,
		serverVersion: DefaultServerVersion,
		acceptPubKeys: "true",
		adminAddr:     DefaultAdminAddr,
	}

	configFile := os.Getenv("HONEYSHELL_CONFIG_FILE")
	if fs.Changed("config") {
		configFile = *flags.configFile
	}
	if configFile != "" {
		if err := applyFile(&raw, configFile); err != nil {
			return nil, err
		}
	}

	applyEnv(&raw)
	applyFlags(&raw, fs, flags)

	return raw.build()
}

func applyFile(raw *rawConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file: %w", ErrInvalidConfig, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: parse config file %s: %w", ErrInvalidConfig, path, err)
	}

	setString(&raw.logLevel, fc.LogLevel)
	setString(&raw.logFormat, fc.LogFormat)
	setString(&raw.dbPath, fc.DBPath)
	setString(&raw.ttl, fc.CredentialTTL)
	setString(&raw.bannerFile, fc.BannerFile)
	setString(&raw.hostname, fc.Hostname)
	setString(&raw.serverVersion, fc.ServerVersion)
	setString(&raw.adminAddr, fc.AdminAddr)
	if fc.Binds != nil {
		raw.binds = fc.Binds
	}
	if fc.HostKeys != nil {
		raw.hostKeys = fc.HostKeys
	}
	if fc.LoginProbability != nil {
		raw.probability = strconv.FormatFloat(*fc.LoginProbability, 'g', -1, 64)
	}
	if fc.AcceptPublicKeys != nil {
		raw.acceptPubKeys = strconv.FormatBool(*fc.AcceptPublicKeys)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyEnv(raw *rawConfig) {
	envString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	envList := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitList(v)
		}
	}

	envString("HONEYSHELL_LOG_LEVEL", &raw.logLevel)
	envString("HONEYSHELL_LOG_FORMAT", &raw.logFormat)
	envString("HONEYSHELL_DB_PATH", &raw.dbPath)
	envString("HONEYSHELL_CREDENTIAL_TTL", &raw.ttl)
	envList("HONEYSHELL_BIND", &raw.binds)
	envString("HONEYSHELL_BANNER_FILE", &raw.bannerFile)
	envList("HONEYSHELL_HOST_KEYS", &raw.hostKeys)
	envString("HONEYSHELL_LOGIN_PROBABILITY", &raw.probability)
	envString("HONEYSHELL_HOSTNAME", &raw.hostname)
	envString("HONEYSHELL_SERVER_VERSION", &raw.serverVersion)
	envString("HONEYSHELL_ACCEPT_PUBLIC_KEYS", &raw.acceptPubKeys)
	envString("HONEYSHELL_ADMIN_ADDR", &raw.adminAddr)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (raw rawConfig) build() (*Config, error) {
	level := strings.ToLower(raw.logLevel)
	if _, ok := parseLevel(level); !ok {
		return nil, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, raw.logLevel)
	}

	format := strings.ToLower(raw.logFormat)
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, raw.logFormat)
	}

	if raw.dbPath == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}

	ttl, err := parseTTL(raw.ttl)
	if err != nil {
		return nil, err
	}

	if len(raw.binds) == 0 {
		return nil, fmt.Errorf("%w: at least one bind address is required", ErrInvalidConfig)
	}
	binds := make([]string, 0, len(raw.binds))
	for _, b := range raw.binds {
		addr, err := ParseBind(b)
		if err != nil {
			return nil, err
		}
		binds = append(binds, addr)
	}

	probability, err := strconv.ParseFloat(raw.probability, 64)
	if err != nil || math.IsNaN(probability) || probability < 0 || probability > 1 {
		return nil, fmt.Errorf("%w: %q is not a valid probability", ErrInvalidConfig, raw.probability)
	}

	acceptPubKeys, err := strconv.ParseBool(raw.acceptPubKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: accept public keys %q: %w", ErrInvalidConfig, raw.acceptPubKeys, err)
	}

	if raw.bannerFile == "" {
		return nil, fmt.Errorf("%w: banner file is required", ErrInvalidConfig)
	}
	if err := checkReadable(raw.bannerFile); err != nil {
		return nil, err
	}

	if len(raw.hostKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one host key is required", ErrInvalidConfig)
	}
	for _, key := range raw.hostKeys {
		if err := checkReadable(key); err != nil {
			return nil, err
		}
	}

	if raw.adminAddr != "" {
		if _, _, err := net.SplitHostPort(raw.adminAddr); err != nil {
			return nil, fmt.Errorf("%w: admin address %q: %w", ErrInvalidConfig, raw.adminAddr, err)
		}
	}

	return &Config{
		LogLevel:         level,
		LogFormat:        format,
		DBPath:           raw.dbPath,
		CredentialTTL:    ttl,
		Binds:            binds,
		BannerFile:       raw.bannerFile,
		HostKeys:         raw.hostKeys,
		LoginProbability: probability,
		Hostname:         raw.hostname,
		ServerVersion:    raw.serverVersion,
		AcceptPublicKeys: acceptPubKeys,
		AdminAddr:        raw.adminAddr,
	}, nil
}

// parseTTL accepts a Go duration or a whole number of seconds.
func parseTTL(v string) (time.Duration, error) {
	var ttl time.Duration
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs > math.MaxInt64/int64(time.Second) {
			return 0, fmt.Errorf("%w: credential TTL %q seconds is too large", ErrInvalidConfig, v)
		}
		ttl = time.Duration(secs) * time.Second
	} else {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: credential TTL %q is neither seconds nor a duration", ErrInvalidConfig, v)
		}
		ttl = d
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("%w: credential TTL must be positive, got %q", ErrInvalidConfig, v)
	}
	return ttl, nil
}

// ParseBind converts "host#port" or "host:port" into a host:port address.
func ParseBind(v string) (string, error) {
	var host, port string
	if i := strings.LastIndex(v, "#"); i >= 0 {
		host, port = v[:i], v[i+1:]
	} else {
		var err error
		host, port, err = net.SplitHostPort(v)
		if err != nil {
			return "", fmt.Errorf("%w: bind %q: %w", ErrInvalidConfig, v, err)
		}
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("%w: bind %q: %q is not a valid port number", ErrInvalidConfig, v, port)
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(n)), nil
}

func parseLevel(v string) (slog.Level, bool) {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "critical", "fatal":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return f.Close()
}
