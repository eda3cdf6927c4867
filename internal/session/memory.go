package session

// EstimateMemory implements the admission-control estimator from spec
// §4.1: strings cost 2*len+40 bytes; arrays/objects are a recursive sum
// with a 40-byte per-object overhead; numbers/booleans cost 8 bytes. This
// estimate is used only for admission control, never for actual
// allocation.
func EstimateMemory(v interface{}) int64 {
	switch val := v.(type) {
	case nil:
		return 8
	case string:
		return int64(2*len(val) + 40)
	case bool:
		return 8
	case int, int64, float64, float32, int32:
		return 8
	case []interface{}:
		total := int64(40)
		for _, e := range val {
			total += EstimateMemory(e)
		}
		return total
	case map[string]interface{}:
		total := int64(40)
		for k, e := range val {
			total += int64(2*len(k)+40) + EstimateMemory(e)
		}
		return total
	default:
		return 40
	}
}
