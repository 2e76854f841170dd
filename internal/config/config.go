package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MATCH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MATCH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the environment may already be populated.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisURL returns the Redis connection URL. Empty disables the shared
// favourites cache.
func RedisURL() string {
	return os.Getenv("REDIS_URL")
}

// StorageBackend returns "postgres" or "memory". Defaults to postgres when
// DATABASE_URL is set, memory otherwise.
func StorageBackend() string {
	switch b := strings.ToLower(os.Getenv("STORAGE_BACKEND")); b {
	case "postgres", "memory":
		return b
	}
	if DatabaseURL() != "" {
		return "postgres"
	}
	return "memory"
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	return positiveFloat("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return positiveInt("RATE_LIMIT_BURST", 20)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// MatchMinResults is the filtered-set size below which a match is
// reported as sparse.
func MatchMinResults() int {
	return positiveInt("MATCH_MIN_RESULTS", 3)
}

func MatchDefaultLimit() int {
	return positiveInt("MATCH_DEFAULT_LIMIT", 9)
}

func MatchAnonymousLimit() int {
	return positiveInt("MATCH_ANONYMOUS_LIMIT", 5)
}

func MatchMaxLimit() int {
	return positiveInt("MATCH_MAX_LIMIT", 50)
}

// NewClinicianWindow is how long a clinician counts as new.
// Defaults to 30 days.
func NewClinicianWindow() time.Duration {
	return time.Duration(positiveInt("NEW_CLINICIAN_DAYS", 30)) * 24 * time.Hour
}

func NewClinicianBoostEnabled() bool {
	return boolean("ENABLE_NEW_CLINICIAN_BOOST", true)
}

func DiversityEnabled() bool {
	return boolean("ENABLE_DIVERSITY", true)
}

// DiversityPenalty returns the largest diversity score reduction, in [0,1].
func DiversityPenalty() float64 {
	p, err := strconv.ParseFloat(os.Getenv("DIVERSITY_PENALTY"), 64)
	if err != nil || p < 0 || p > 1 {
		return 0.1
	}
	return p
}

func ExcludeRejected() bool {
	return boolean("EXCLUDE_REJECTED", true)
}

func CFNeighbors() int {
	return positiveInt("CF_NEIGHBORS", 20)
}

func CFMinCommon() int {
	return positiveInt("CF_MIN_COMMON", 1)
}

// CFSimilarity returns the user similarity metric (jaccard, cosine).
// Defaults to "jaccard" if not set.
func CFSimilarity() string {
	s := strings.ToLower(os.Getenv("CF_SIMILARITY"))
	if s == "" {
		return "jaccard"
	}
	return s
}

// SpecialtyCacheSize bounds the specialty overlap LRU. Zero disables it.
func SpecialtyCacheSize() int {
	n, err := strconv.Atoi(os.Getenv("SPECIALTY_CACHE_SIZE"))
	if err != nil || n < 0 {
		return 4096
	}
	return n
}

func ReferenceRefreshInterval() time.Duration {
	return positiveDuration("REFERENCE_REFRESH_INTERVAL", 15*time.Minute)
}

func FavoritesPerCluster() int {
	return positiveInt("FAVORITES_PER_CLUSTER", 10)
}

// FavoritesCacheTTL is how long published favourites live in Redis.
func FavoritesCacheTTL() time.Duration {
	return positiveDuration("FAVORITES_CACHE_TTL", time.Hour)
}

// SeedClinicians is the size of the generated demo catalogue.
func SeedClinicians() int {
	return positiveInt("SEED_CLINICIANS", 200)
}

func SeedUsers() int {
	return positiveInt("SEED_USERS", 100)
}

// SeedValue fixes the demo data generator so every run produces the same
// catalogue.
func SeedValue() uint64 {
	v, err := strconv.ParseUint(os.Getenv("SEED_VALUE"), 10, 64)
	if err != nil {
		return 42
	}
	return v
}

func positiveInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func positiveFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func positiveDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func boolean(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}
