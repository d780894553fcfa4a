package config

import (
	"strconv"

	"github.com/spf13/pflag"
)

// flagValues holds the destinations of the command-line flags. Only flags
// set on the command line override earlier layers.
type flagValues struct {
	configFile       *string
	logLevel         *string
	logFormat        *string
	dbPath           *string
	ttl              *string
	binds            *[]string
	bannerFile       *string
	hostKeys         *[]string
	loginProbability *float64
	hostname         *string
	serverVersion    *string
	acceptPublicKeys *bool
	adminAddr        *string
}

func defineFlags(fs *pflag.FlagSet) flagValues {
	return flagValues{
		configFile:       fs.StringP("config", "c", "", "YAML configuration file"),
		logLevel:         fs.StringP("verbosity", "v", DefaultLogLevel, "logging verbosity (debug, info, warn, error)"),
		logFormat:        fs.String("log-format", DefaultLogFormat, "log output format (text, json)"),
		dbPath:           fs.StringP("user-database", "D", DefaultDBPath, "user database file"),
		ttl:              fs.StringP("user-ttl", "T", strconv.Itoa(int(DefaultCredentialTTL.Seconds())), "user account time to live, in seconds or as a duration"),
		binds:            fs.StringSliceP("bind", "b", []string{DefaultBind}, "bind address and port, separated with # or :"),
		bannerFile:       fs.StringP("banner-file", "B", "", "text file with banner template"),
		hostKeys:         fs.StringSliceP("host-key", "k", nil, "host key files"),
		loginProbability: fs.Float64P("login-probability", "P", DefaultLoginProbability, "desired probability of login success"),
		hostname:         fs.String("hostname", DefaultHostname, "host name shown in the shell prompt"),
		serverVersion:    fs.String("server-version", DefaultServerVersion, "SSH server version string"),
		acceptPublicKeys: fs.Bool("accept-public-keys", true, "accept every public key login"),
		adminAddr:        fs.String("admin-addr", DefaultAdminAddr, "admin API listen address, empty to disable"),
	}
}

func applyFlags(raw *rawConfig, fs *pflag.FlagSet, f flagValues) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("verbosity", func() { raw.logLevel = *f.logLevel })
	set("log-format", func() { raw.logFormat = *f.logFormat })
	set("user-database", func() { raw.dbPath = *f.dbPath })
	set("user-ttl", func() { raw.ttl = *f.ttl })
	set("bind", func() { raw.binds = *f.binds })
	set("banner-file", func() { raw.bannerFile = *f.bannerFile })
	set("host-key", func() { raw.hostKeys = *f.hostKeys })
	set("login-probability", func() {
		raw.probability = strconv.FormatFloat(*f.loginProbability, 'g', -1, 64)
	})
	set("hostname", func() { raw.hostname = *f.hostname })
	set("server-version", func() { raw.serverVersion = *f.serverVersion })
	set("accept-public-keys", func() { raw.acceptPubKeys = strconv.FormatBool(*f.acceptPublicKeys) })
	set("admin-addr", func() { raw.adminAddr = *f.adminAddr })
}
