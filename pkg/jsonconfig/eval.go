/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jsonconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// configParser holds the state for one ReadFile call: the decoded root
// object plus cycle detection for included files.
type configParser struct {
	touchedFiles map[string]bool
}

var envPattern = regexp.MustCompile(`\$\{[A-Za-z0-9_]+\}`)

func (c *configParser) recursiveReadJSON(configPath string) (map[string]interface{}, error) {
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand absolute path for %s", configPath)
	}
	if c.touchedFiles[configPath] {
		return nil, fmt.Errorf("jsonconfig: include cycle detected reading %s", configPath)
	}
	c.touchedFiles[configPath] = true

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %s: %w", configPath, err)
	}
	defer f.Close()

	decoded := make(map[string]interface{})
	if err := json.NewDecoder(f).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error parsing JSON config file %s: %w", configPath, err)
	}

	if err := c.evaluateExpressions(decoded); err != nil {
		return nil, fmt.Errorf("error expanding config expressions in %s: %w", configPath, err)
	}
	return decoded, nil
}

// evaluateExpressions walks the decoded tree looking for ["_env", "VAR"]
// (or ["_env", "VAR", default]) two/three-element arrays and replaces them
// in place with the expanded value, so deployment secrets never need to be
// inlined into the config file itself.
func (c *configParser) evaluateExpressions(m map[string]interface{}) error {
	for k, ei := range m {
		switch v := ei.(type) {
		case string, bool, float64, nil:
			continue
		case []interface{}:
			if len(v) == 0 {
				continue
			}
			newval, err := c.evalValue(v)
			if err != nil {
				return err
			}
			m[k] = newval
		case map[string]interface{}:
			if err := c.evaluateExpressions(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("jsonconfig: unhandled type %T for key %q", ei, k)
		}
	}
	return nil
}

func (c *configParser) evalValue(sl []interface{}) (interface{}, error) {
	if name, ok := sl[0].(string); ok && name == "_env" {
		return c.expandEnv(sl[1:])
	}
	for i, v := range sl {
		sub, ok := v.([]interface{})
		if !ok {
			continue
		}
		newval, err := c.evalValue(sub)
		if err != nil {
			return nil, err
		}
		sl[i] = newval
	}
	return sl, nil
}

// expandEnv implements ["_env", "VARIABLE"] (required) and
// ["_env", "VARIABLE", default] (falls back to default, string or bool).
func (c *configParser) expandEnv(v []interface{}) (interface{}, error) {
	if len(v) < 1 || len(v) > 2 {
		return "", fmt.Errorf("_env expansion expected 1 or 2 args, got %d", len(v))
	}
	s, ok := v[0].(string)
	if !ok {
		return "", fmt.Errorf("expected a string after _env expansion; got %#v", v[0])
	}
	if !envPattern.MatchString(s) {
		s = "${" + s + "}"
	}
	hasDefault := len(v) == 2
	var (
		def        string
		boolDef    bool
		wantsBool  bool
	)
	if hasDefault {
		switch d := v[1].(type) {
		case string:
			def = d
		case bool:
			wantsBool = true
			boolDef = d
		default:
			return "", fmt.Errorf("unexpected default value in %q _env expansion: %#v", s, v[1])
		}
	}

	var err error
	expanded := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		envVar := match[2 : len(match)-1]
		val := os.Getenv(envVar)
		if val == "" {
			if hasDefault {
				return def
			}
			err = fmt.Errorf("couldn't expand environment variable %q", envVar)
		}
		return val
	})
	if wantsBool {
		if expanded == "" {
			return boolDef, nil
		}
		return strconv.ParseBool(expanded)
	}
	return expanded, err
}
