package config

import (
	"os"
	"strconv"
	"strings"
)

// Quota keys understood by the enforcer.
const (
	QuotaMaxKeys          = "max_keys"
	QuotaMaxOrganizations = "max_organizations"
	QuotaMaxProjects      = "max_projects"
	QuotaMaxVPCs          = "max_vpcs"
)

// Broker exchanges the API publishes to.
const (
	ExchangeGit       = "git"
	ExchangeNamespace = "namespace"
)

// QuotaDefaults are the thresholds stamped onto every new owner.
type QuotaDefaults struct {
	MaxKeys          int64
	MaxOrganizations int64
	MaxProjects      int64
	MaxVPCs          int64
}

// BrokerConfig describes the message broker and the exchanges the API is
// aware of. The exchange registry lives here, not in package state.
type BrokerConfig struct {
	Brokers   []string
	Exchanges []string
}

// RPCConfig holds the base URLs of the two downstream services.
type RPCConfig struct {
	BuildsURL      string
	DeploymentsURL string
}

// Config is built once in main and handed to the components that need it.
type Config struct {
	Port               string
	Quotas             QuotaDefaults
	Broker             BrokerConfig
	RPC                RPCConfig
	ProjectURITemplate string // fmt template taking (owner, name)
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		Port: GetEnv("PORT", "8080"),
		Quotas: QuotaDefaults{
			MaxKeys:          getEnvInt64("QUOTA_MAX_KEYS", 5),
			MaxOrganizations: getEnvInt64("QUOTA_MAX_ORGANIZATIONS", 2),
			MaxProjects:      getEnvInt64("QUOTA_MAX_PROJECTS", 5),
			MaxVPCs:          getEnvInt64("QUOTA_MAX_VPCS", 2),
		},
		Broker: BrokerConfig{
			Brokers:   strings.Split(GetEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Exchanges: []string{ExchangeGit, ExchangeNamespace},
		},
		RPC: RPCConfig{
			BuildsURL:      GetEnv("BUILDS_SERVICE_URL", "http://localhost:8090"),
			DeploymentsURL: GetEnv("DEPLOYMENTS_SERVICE_URL", "http://localhost:8091"),
		},
		ProjectURITemplate: GetEnv("PROJECT_URI_TEMPLATE", "ssh://git@git.local/%s/%s.git"),
	}
}

// DefaultFor maps a quota key to its configured default threshold.
func (q QuotaDefaults) DefaultFor(key string) int64 {
	switch key {
	case QuotaMaxKeys:
		return q.MaxKeys
	case QuotaMaxOrganizations:
		return q.MaxOrganizations
	case QuotaMaxProjects:
		return q.MaxProjects
	case QuotaMaxVPCs:
		return q.MaxVPCs
	}
	return 0
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
