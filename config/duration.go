package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Duration 是可以从配置绑定的时间间隔，接受 "1.5s" 这样的字符串或纳秒数。
type Duration time.Duration

// Std 返回 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := cast.ToDurationE(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %s: %w", data, err)
	}
	*d = Duration(v)
	return nil
}
