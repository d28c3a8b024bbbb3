package replaysvc

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// #region cbor-codec
// CodecName is the gRPC content-subtype carried by every replay call.
const CodecName = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("replaysvc: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("replaysvc: CBOR decoder initialization failed: " + err.Error())
	}
	encoding.RegisterCodec(cborCodec{})
}

// cborCodec is a gRPC wire codec for plain Go message structs.
type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error)      { return encMode.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }
func (cborCodec) Name() string                       { return CodecName }
// #endregion cbor-codec
