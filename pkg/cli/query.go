package cli

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Query applies a jq expression to a result value.
//
// The value is normalized through JSON first, so struct results behave the
// way their API representation does. A filter producing one value returns
// it bare; several values come back as a slice.
func Query(v any, expr string) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize value: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to normalize value: %w", err)
	}

	var results []any
	iter := query.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return nil, fmt.Errorf("query %q: %w", expr, err)
		}
		results = append(results, out)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
