package credentials

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names read by FromEnv.
const (
	EnvAccessKey = "PATCHER_ACCESS_KEY"
	EnvSecretKey = "PATCHER_SECRET_KEY"
	EnvRegion    = "PATCHER_REGION"
	EnvEndpoint  = "PATCHER_ENDPOINT"
	EnvBucket    = "PATCHER_BUCKET"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromLookup builds credentials from PATCHER_* variables.
// It returns ok=false when none of them is set.
func FromLookup(lookup LookupFunc) (Credentials, bool) {
	var (
		c     Credentials
		found bool
	)
	for name, dst := range map[string]*string{
		EnvAccessKey: &c.AccessKey,
		EnvSecretKey: &c.SecretKey,
		EnvRegion:    &c.Region,
		EnvEndpoint:  &c.Endpoint,
		EnvBucket:    &c.Bucket,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
			found = true
		}
	}
	return c.Normalize(), found
}

// FromEnv reads credentials from the process environment, falling back to
// the given dotenv files for variables the environment does not set. Files
// are read, never loaded into the process environment.
func FromEnv(dotenvFiles ...string) (Credentials, bool, error) {
	fileVars := map[string]string{}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			return Credentials{}, false, fmt.Errorf("credentials: read %s: %w", f, err)
		}
		for k, v := range vars {
			if _, seen := fileVars[k]; !seen {
				fileVars[k] = v
			}
		}
	}

	c, ok := FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
	return c, ok, nil
}
