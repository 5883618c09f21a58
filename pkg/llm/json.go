package llm

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"
)

// Unmarshal decodes model-produced JSON into v. Models occasionally emit
// almost-JSON (trailing commas, unquoted keys, cut-off objects); on a syntax
// error the input is run through jsonrepair once and decoded again.
func Unmarshal(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), v)
}

func hexString() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
