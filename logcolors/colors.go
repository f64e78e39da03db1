package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
)

// Cache-related log prefixes
const (
	LogCacheInit  = Blue + "[Cache:Init]" + Reset
	LogCache      = Blue + "[Cache]" + Reset
	LogCacheClear = Blue + "[Cache:Clear]" + Reset
	LogCachePages = Green + "[Cache:Pages]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// Provider returns a colored provider name, same name always gets the same color
func Provider(name string) string {
	colors := []string{Green, Blue, Purple, Cyan}
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	return colors[hash%len(colors)] + name + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Resolution engine log prefixes
const (
	LogSearch    = Blue + "[Search]" + Reset
	LogArtist    = Blue + "[Artist]" + Reset
	LogRegional  = Cyan + "[Regional]" + Reset
	LogSlug      = Cyan + "[Slug]" + Reset
	LogFetch     = Cyan + "[Fetch]" + Reset
	LogExtract   = Cyan + "[Extract]" + Reset
	LogHTTP      = Cyan + "[HTTP]" + Reset
	LogMatch     = Green + "[Match]" + Reset
	LogSuccess   = Green + "[Success]" + Reset
	LogLyrics    = Blue + "[Lyrics]" + Reset
	LogFallback  = Cyan + "[Fallback]" + Reset
	LogSession   = Purple + "[Session]" + Reset
	LogAuthError = Purple + "[Auth Error]" + Reset
	LogWarning   = Red + "[Warning]" + Reset
)

// Token log prefixes
const (
	LogToken = Cyan + "[Token]" + Reset
)

// Notifier log prefixes
const (
	LogNotifier = Yellow + "[Notifier]" + Reset
)
