package assertions

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
}

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// JSONPath looks up path in a JSON body and compares it with expected.
// A leading "body." or "$." prefix is accepted and ignored.
func JSONPath(body []byte, path string, expected any) *Result {
	result := &Result{
		Subject:  path,
		Expected: expected,
	}

	if !gjson.ValidBytes(body) {
		result.Message = "body is not JSON"
		return result
	}

	p := strings.TrimPrefix(path, "$.")
	p = strings.TrimPrefix(p, "body.")
	p = convertBracketNotation(p)

	value := gjson.GetBytes(body, p)
	if !value.Exists() {
		result.Message = fmt.Sprintf("path %q not found", path)
		return result
	}
	result.Actual = value.Value()

	result.Passed, result.Message = equals(result.Actual, expected)
	return result
}

// Schema validates a JSON body against a JSON Schema. The schema is either an
// inline JSON document or a path to a schema file.
func Schema(body []byte, schema string) *Result {
	result := &Result{
		Subject:  "schema",
		Expected: schema,
	}

	schemaData := []byte(schema)
	if !gjson.Valid(schema) {
		data, err := os.ReadFile(schema)
		if err != nil {
			result.Message = fmt.Sprintf("failed to read schema file: %v", err)
			return result
		}
		schemaData = data
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		result.Message = fmt.Sprintf("schema validation error: %v", err)
		return result
	}

	if validation.Valid() {
		result.Passed = true
		return result
	}

	var errs []string
	for _, desc := range validation.Errors() {
		errs = append(errs, desc.String())
	}
	result.Actual = errs
	result.Message = fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
	return result
}

// Contains checks that the body contains substr.
func Contains(body []byte, substr string) *Result {
	result := &Result{
		Subject:  "body",
		Expected: substr,
		Actual:   string(body),
	}
	if strings.Contains(string(body), substr) {
		result.Passed = true
		return result
	}
	result.Message = fmt.Sprintf("expected body to contain %q", substr)
	return result
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
