package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// secretSchema describes the RDS-style secret layout. Unknown keys such as
// engine or dbClusterIdentifier are allowed; known keys must have the right
// type. Required-ness is checked by New so it reports the missing field.
const secretSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "username":       {"type": ["string", "null"]},
    "password":       {"type": ["string", "null"]},
    "masterEndpoint": {"type": ["string", "null"]},
    "database":       {"type": ["string", "null"]},
    "masterPort": {
      "oneOf": [
        {"type": "integer", "minimum": 1, "maximum": 65535},
        {"type": "string", "pattern": "^[0-9]{1,5}$"},
        {"type": "null"}
      ]
    }
  }
}`

var compiledSecretSchema = mustCompileSchema(secretSchema)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid secret schema: %v", err))
	}
	return schema
}

type secretPayload struct {
	Username       *string   `json:"username"`
	Password       *string   `json:"password"`
	MasterEndpoint *string   `json:"masterEndpoint"`
	MasterPort     portValue `json:"masterPort"`
	Database       *string   `json:"database"`
}

// portValue accepts a port written as a JSON number or a decimal string
type portValue struct {
	Optional[int]
}

func (p *portValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		p.Optional = None[int]()
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("masterPort: %w", err)
		}
		p.Optional = Some(n)
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("masterPort: %w", err)
	}
	if f != math.Trunc(f) {
		return errors.New("masterPort: not an integer")
	}
	p.Optional = Some(int(f))
	return nil
}

// parseSecretPayload decodes a secret payload into Fields. The payload is
// untrusted input: it is only ever decoded as JSON and checked against
// secretSchema. Driver and dialect are never read from it.
func parseSecretPayload(payload []byte) (Fields, error) {
	result, err := compiledSecretSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return Fields{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return Fields{}, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var sp secretPayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		return Fields{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return Fields{
		User:     fromPtr(sp.Username),
		Password: fromPtr(sp.Password),
		Host:     fromPtr(sp.MasterEndpoint),
		Port:     sp.MasterPort.Optional,
		Database: fromPtr(sp.Database),
	}, nil
}

func fromPtr(s *string) Optional[string] {
	if s == nil {
		return None[string]()
	}
	return nonEmpty(*s)
}
