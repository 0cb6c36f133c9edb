package config

// EnvPrefix is the envconfig prefix; individual fields carry explicit
// BACKSTAGE_* tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "BACKSTAGE_DB_DSN"
	EnvDBHost = "BACKSTAGE_DB_HOST"
	EnvDBUser = "BACKSTAGE_DB_USER"
	EnvDBName = "BACKSTAGE_DB_NAME"

	EnvExchangeRate = "BACKSTAGE_EXCHANGE_RATE"
	EnvBaseURL      = "BACKSTAGE_PUBLIC_BASE_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
