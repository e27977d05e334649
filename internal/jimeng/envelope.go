package jimeng

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// envelope is the common wrapper of every upstream response.
type envelope struct {
	Ret     flexString      `json:"ret"`
	ErrMsg  string          `json:"errmsg"`
	Data    json.RawMessage `json:"data"`
	LogID   string          `json:"logid,omitempty"`
	SysTime flexString      `json:"systime,omitempty"`
}

// flexString decodes a JSON string or number into its string form.
// Upstream is inconsistent about ret and fail_code types.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// Int parses the value as a base-10 integer, returning 0 on failure.
func (f flexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}
