package model

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ErrMalformed — документ не содержит нужного поля или поле другого типа.
var ErrMalformed = errors.New("malformed document")

var timeType = reflect.TypeOf(time.Time{})

// epochMillisToTime принимает timestamp в миллисекундах (клиент пишет Date.now()).
func epochMillisToTime(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	}
	return data, nil
}

func decode(data map[string]any, out any) error {
	if data == nil {
		return errors.New("empty document")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			epochMillisToTime,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func malformed(collection, id string, err error) error {
	return fmt.Errorf("%w: %s/%s: %v", ErrMalformed, collection, id, err)
}

func missing(collection, id, field string) error {
	return fmt.Errorf("%w: %s/%s: missing field %q", ErrMalformed, collection, id, field)
}
