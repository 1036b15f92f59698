package constants

type ContextKey string

const (
	AppKey    ContextKey = "app"
	PoolKey   ContextKey = "pool"
	TxKey     ContextKey = "tx"
	TenantKey ContextKey = "tenant"
	ActorKey  ContextKey = "actor"
	LoggerKey ContextKey = "logger"
)
