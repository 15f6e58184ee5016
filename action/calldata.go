// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package action

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrInvalidCalldata = errors.New("invalid calldata")

// calldata is the wire format of a target call: a method name followed by
// CBOR-encoded arguments
type calldata struct {
	_      struct{} `cbor:",toarray"`
	Method string
	Args   cbor.RawMessage
}

// EncodeCalldata builds calldata invoking method with args. A nil args value
// encodes as CBOR null
func EncodeCalldata(method string, args any) ([]byte, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrInvalidCalldata)
	}
	rawArgs, err := batchEncMode.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode calldata args: %w", err)
	}
	return batchEncMode.Marshal(
		calldata{
			Method: method,
			Args:   rawArgs,
		},
	)
}

// MustEncodeCalldata is like EncodeCalldata but panics on error. It is meant
// for static calldata in tests and tooling
func MustEncodeCalldata(method string, args any) []byte {
	ret, err := EncodeCalldata(method, args)
	if err != nil {
		panic(err)
	}
	return ret
}

// DecodeCalldata splits calldata into its method name and raw arguments
func DecodeCalldata(data []byte) (string, cbor.RawMessage, error) {
	var tmp calldata
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidCalldata, err)
	}
	if tmp.Method == "" {
		return "", nil, fmt.Errorf("%w: empty method", ErrInvalidCalldata)
	}
	return tmp.Method, tmp.Args, nil
}

// DecodeArgs decodes raw calldata arguments into dest
func DecodeArgs(args cbor.RawMessage, dest any) error {
	if err := cbor.Unmarshal(args, dest); err != nil {
		return fmt.Errorf("%w: decode args: %w", ErrInvalidCalldata, err)
	}
	return nil
}
