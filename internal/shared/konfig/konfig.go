// Package konfig loads typed configuration from an optional YAML file and
// prefixed environment variables through koanf.
package konfig

import (
	"os"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Options struct {
	// File is the YAML file to read. Empty or missing files are skipped
	// unless Required is set.
	File     string
	Required bool
	// EnvPrefix selects the environment variables, e.g. "MEDEQUIP_".
	EnvPrefix string
}

// Load decodes file and environment values into dst. Fields of dst that no
// source mentions keep their current values, so callers pass defaults in.
func Load[T any](dst *T, opts Options) error {
	k := koanf.New(".")

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err == nil {
			if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
				return errors.Wrapf(err, "read config %s", opts.File)
			}
		} else if opts.Required {
			return errors.Errorf("config file %s not found", opts.File)
		}
	}

	existing := k.Raw()
	if opts.EnvPrefix != "" {
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix: opts.EnvPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return canonicalizeEnvKey(strings.TrimPrefix(key, opts.EnvPrefix), existing), value
			},
		}), nil); err != nil {
			return errors.Wrap(err, "load env variables")
		}
	}

	if err := k.UnmarshalWithConf("", dst, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           dst,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}
	return nil
}

// canonicalizeEnvKey turns SERVER_TIMEOUT into server.timeout, reusing the
// spelling of keys already loaded from the file (AUTH_JWTSECRET ->
// auth.jwtSecret).
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}
	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}
	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}
		child, _ := value.(map[string]any)
		return key, child, true
	}
	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
