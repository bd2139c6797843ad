package mcversion

import "encoding/json"

// UnmarshalJSON accepts either a bare string token or a
// {"rules": [...], "value": string|[]string} conditional object, matching
// the two shapes Mojang's modern arguments.{game,jvm} arrays mix freely.
func (a *RawArg) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Value = []string{s}
		return nil
	}

	var obj struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Rules = obj.Rules

	var single string
	if err := json.Unmarshal(obj.Value, &single); err == nil {
		a.Value = []string{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(obj.Value, &multi); err != nil {
		return err
	}
	a.Value = multi
	return nil
}

func (a RawArg) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 {
		if len(a.Value) == 1 {
			return json.Marshal(a.Value[0])
		}
		return json.Marshal(a.Value)
	}
	var value any = a.Value
	if len(a.Value) == 1 {
		value = a.Value[0]
	}
	return json.Marshal(struct {
		Rules []Rule `json:"rules"`
		Value any    `json:"value"`
	}{a.Rules, value})
}
