package sign

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Core Deterministic Encoding (RFC 8949 §4.2):
// the same header always produces the same bytes,
// which is what gets signed.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sign: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic("sign: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
