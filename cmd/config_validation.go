package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/institute-cms/internal/cms/service"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateStorageConfig(get, &validationErrs)
	validateMediaConfig(get, &validationErrs)
	validateRedisConfig(get, &validationErrs)
	validateAuthConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateStorageConfig validates the content backend selection and its history limits.
func validateStorageConfig(get configGetter, errs *[]string) {
	backend := validateOptionalEnum(get, "settings.cms.storage",
		[]string{service.StorageJSON, service.StorageMongo}, errs)
	validateOptionalIntMin(get, "settings.cms.versions.max", 1, errs)
	validateOptionalIntMin(get, "settings.cms.cache.ttl_seconds", 1, errs)
	validateOptionalStringNonEmpty(get, "settings.cms.json.root", errs)
	validateOptionalStringNonEmpty(get, "settings.cms.seed_file", errs)

	if backend == service.StorageMongo {
		validateRequiredString(get, "settings.db.cms.addr", errs)
		validateRequiredString(get, "settings.db.cms.db", errs)
	}
}

// validateMediaConfig validates the media backend and its upload limit.
func validateMediaConfig(get configGetter, errs *[]string) {
	backend := validateOptionalEnum(get, "settings.cms.media.backend",
		[]string{service.MediaLocal, service.MediaMinIO}, errs)
	validateOptionalInt64Min(get, "settings.cms.media.max_bytes", 1, errs)
	validateOptionalPathPrefix(get, "settings.cms.media.url_prefix", errs)

	if backend != service.MediaMinIO {
		return
	}

	validateRequiredString(get, "settings.cms.media.minio.endpoint", errs)
	validateRequiredString(get, "settings.cms.media.minio.bucket", errs)
	validateOptionalBool(get, "settings.cms.media.minio.secure", errs)
	validateOptionalURL(get, "settings.cms.media.minio.public_url", errs)
	if raw := get("settings.cms.media.minio.endpoint"); raw != nil {
		if endpoint, err := parseStrictString(raw); err == nil && strings.TrimSpace(endpoint) != "" && !isValidHost(endpoint) {
			appendValidationError(errs, "settings.cms.media.minio.endpoint must be host[:port] without scheme")
		}
	}
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
}

// validateAuthConfig validates the admin session lifetime.
func validateAuthConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.auth.token_ttl_hours", 1, errs)
}

// validateWebConfig validates CORS hosts and the static site directory.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.web.site_dir", errs)

	raw := get("settings.web.cors_hosts")
	if raw == nil {
		return
	}

	hosts, ok := toStringSlice(raw)
	if !ok {
		appendValidationError(errs, "settings.web.cors_hosts must be a list of hosts")
		return
	}
	for i, host := range hosts {
		if !isValidHost(host) {
			appendValidationError(errs, "settings.web.cors_hosts[%d] must be a valid host", i)
		}
	}
}

// validateOptionalEnum validates an optionally configured string key against allowed values.
// It returns the normalized value, or "" when the key is unset or invalid.
func validateOptionalEnum(get configGetter, key string, allowed []string, errs *[]string) string {
	raw := get(key)
	if raw == nil {
		return ""
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if normalized == a {
			return normalized
		}
	}

	appendValidationError(errs, "%s must be one of [%s]", key, strings.Join(allowed, ", "))
	return ""
}

// validateRequiredString validates that a key is configured as a non-empty string.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	text, parseErr := parseStrictString(raw)
	if parseErr != nil || strings.TrimSpace(text) == "" {
		appendValidationError(errs, "%s must be a non-empty string", key)
	}
}

// toStringSlice converts a decoded list value into strings.
func toStringSlice(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalPathPrefix validates an optionally configured URL base path.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalPathPrefix(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string path", key)
		return
	}

	if !isValidBasePath(value) {
		appendValidationError(errs, "%s must be empty or start with '/'", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidBasePath validates a base path used for URL prefixes.
// It accepts a path string and returns whether it is empty or starts with '/'.
func isValidBasePath(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(trimmed, "/")
}

// isValidHost validates a host string without scheme or path components.
// It accepts a host string and returns true when the host is syntactically acceptable.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
