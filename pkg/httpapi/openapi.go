package httpapi

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"gopkg.in/yaml.v3"
)

//go:embed docs/openapi.yaml
var embeddedOpenAPIYAML []byte

// LoadOpenAPIJSON parses the embedded OpenAPI YAML document into JSON, the
// same serde_yaml::from_str-then-re-serialize shape the original's docs
// handler used, expressed here with the teacher's own yaml.v3 dependency
// instead of a bespoke parser.
func LoadOpenAPIJSON() ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(embeddedOpenAPIYAML, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML converts the map[string]interface{} / map[interface{}]interface{}
// mix yaml.v3 can produce into a purely map[string]interface{} tree so
// encoding/json can marshal it without error.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if len(s.openapiJSON) == 0 {
		writeError(w, http.StatusInternalServerError, "openapi_unavailable", "document failed to load at startup")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.openapiJSON)
}
