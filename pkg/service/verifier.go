package service

import (
	"fmt"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// Verifier is a stateless rule engine that checks a step's produced data and
// DOM fingerprint against the step's declared verification kinds. The overall
// result is the conjunction of the individual checks.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify evaluates each declared verification kind independently.
// extractedData is the decoded JSON the step produced, or nil when the step
// produced none.
func (v *Verifier) Verify(step models.Step, extractedData any, domFingerprint string) models.VerificationResult {
	checks := make([]models.CheckResult, 0, len(step.Verification))
	for _, kind := range step.Verification {
		var check models.CheckResult
		switch kind {
		case models.SchemaVerification:
			check = v.checkSchema(step, extractedData)
		case models.SanityCheckVerification:
			check = v.checkSanity(extractedData)
		case models.ElementPresenceVerification:
			check = v.checkElementPresence(step, domFingerprint)
		case models.NumericRangeVerification:
			check = v.checkNumericRange(step, extractedData)
		default:
			check = models.CheckResult{
				CheckType: string(kind),
				Passed:    false,
				Message:   fmt.Sprintf("unknown verification type %q", kind),
			}
		}
		checks = append(checks, check)
	}

	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
			break
		}
	}
	return models.VerificationResult{Passed: passed, Checks: checks}
}

// checkSchema validates extracted data against the step's expected schema.
// A JSON `null` schema decodes to a nil ExpectedSchema and is treated the
// same as an undeclared one: the check is skipped, not kind-matched.
func (v *Verifier) checkSchema(step models.Step, data any) models.CheckResult {
	result := models.CheckResult{CheckType: string(models.SchemaVerification)}
	if step.ExpectedSchema == nil {
		result.Passed = true
		result.Message = "no schema defined, skipping"
		return result
	}
	if data == nil {
		result.Message = "no data to validate"
		return result
	}
	if matchesSchema(data, step.ExpectedSchema) {
		result.Passed = true
		result.Message = "schema validation passed"
	} else {
		result.Message = "schema validation failed"
	}
	return result
}

func (v *Verifier) checkSanity(data any) models.CheckResult {
	result := models.CheckResult{CheckType: string(models.SanityCheckVerification)}
	if data == nil {
		result.Message = "no data to check"
		return result
	}
	if obj, ok := data.(map[string]any); ok && len(obj) == 0 {
		result.Message = "data object is empty"
		return result
	}
	result.Passed = true
	result.Message = "sanity check passed"
	return result
}

// checkElementPresence always passes: presence is already enforced by the
// actuator call itself.
func (v *Verifier) checkElementPresence(_ models.Step, _ string) models.CheckResult {
	return models.CheckResult{
		CheckType: string(models.ElementPresenceVerification),
		Passed:    true,
		Message:   "element presence verified by executor",
	}
}

func (v *Verifier) checkNumericRange(step models.Step, data any) models.CheckResult {
	result := models.CheckResult{CheckType: string(models.NumericRangeVerification)}
	if data == nil {
		result.Message = "no data to check"
		return result
	}

	num, ok := asFloat(data)
	if !ok {
		result.Passed = true
		result.Message = "not a numeric value, skipping range check"
		return result
	}

	if min, ok := paramFloat(step.Parameters, "min_value"); ok && num < min {
		result.Message = fmt.Sprintf("value %v is below minimum %v", num, min)
		return result
	}
	if max, ok := paramFloat(step.Parameters, "max_value"); ok && num > max {
		result.Message = fmt.Sprintf("value %v is above maximum %v", num, max)
		return result
	}
	result.Passed = true
	result.Message = "numeric range check passed"
	return result
}

// matchesSchema does structural compatibility only. Object schemas require
// every schema key to be present in the data; array schemas require matching
// lengths; scalars must be the same JSON kind.
func matchesSchema(data, schema any) bool {
	switch s := schema.(type) {
	case map[string]any:
		d, ok := data.(map[string]any)
		if !ok {
			return false
		}
		for key := range s {
			if _, present := d[key]; !present {
				return false
			}
		}
		return true
	case []any:
		d, ok := data.([]any)
		if !ok {
			return false
		}
		return len(d) == len(s)
	case bool:
		_, ok := data.(bool)
		return ok
	case string:
		_, ok := data.(string)
		return ok
	case nil:
		return data == nil
	default:
		// Remaining JSON kind is number.
		_, sNum := asFloat(schema)
		_, dNum := asFloat(data)
		return sNum && dNum
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}
