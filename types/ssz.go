package types

import (
	"fmt"

	builderApiV1 "github.com/attestantio/go-builder-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
)

const (
	bytesPerOffset  = 4
	bidTraceSSZSize = 236
	signatureSize   = 96
)

// sszField is one member of an SSZ container assembled by hand. A size of
// zero marks a variable-size member that is encoded behind an offset.
type sszField struct {
	size      int
	marshal   func() ([]byte, error)
	unmarshal func([]byte) error
}

func fixedField(size int, marshal func() ([]byte, error), unmarshal func([]byte) error) sszField {
	return sszField{size: size, marshal: marshal, unmarshal: unmarshal}
}

func variableField(marshal func() ([]byte, error), unmarshal func([]byte) error) sszField {
	return sszField{marshal: marshal, unmarshal: unmarshal}
}

func fixedPartSize(fields []sszField) int {
	size := 0
	for _, f := range fields {
		if f.size > 0 {
			size += f.size
		} else {
			size += bytesPerOffset
		}
	}
	return size
}

func marshalContainer(fields ...sszField) ([]byte, error) {
	parts := make([][]byte, len(fields))
	total := fixedPartSize(fields)
	for i, f := range fields {
		part, err := f.marshal()
		if err != nil {
			return nil, err
		}
		if f.size > 0 && len(part) != f.size {
			return nil, fmt.Errorf("%w: field %d is %d bytes, expected %d", ssz.ErrSize, i, len(part), f.size)
		}
		if f.size == 0 {
			total += len(part)
		}
		parts[i] = part
	}

	buf := make([]byte, 0, total)
	offset := fixedPartSize(fields)
	for i, f := range fields {
		if f.size > 0 {
			buf = append(buf, parts[i]...)
			continue
		}
		buf = ssz.WriteOffset(buf, offset)
		offset += len(parts[i])
	}
	for i, f := range fields {
		if f.size == 0 {
			buf = append(buf, parts[i]...)
		}
	}
	return buf, nil
}

func unmarshalContainer(buf []byte, fields ...sszField) error {
	fixedSize := fixedPartSize(fields)
	if len(buf) < fixedSize {
		return ssz.ErrSize
	}

	starts := make([]int, len(fields))
	var variable []int
	pos := 0
	for i, f := range fields {
		if f.size > 0 {
			starts[i] = pos
			pos += f.size
			continue
		}
		starts[i] = int(ssz.ReadOffset(buf[pos : pos+bytesPerOffset]))
		pos += bytesPerOffset
		variable = append(variable, i)
	}

	if len(variable) == 0 && len(buf) != fixedSize {
		return ssz.ErrSize
	}
	for k, i := range variable {
		if k == 0 && starts[i] != fixedSize {
			return ssz.ErrInvalidVariableOffset
		}
		if starts[i] > len(buf) || (k > 0 && starts[i] < starts[variable[k-1]]) {
			return ssz.ErrOffset
		}
	}

	for i, f := range fields {
		end := starts[i] + f.size
		if f.size == 0 {
			end = len(buf)
			for k, v := range variable {
				if v == i && k+1 < len(variable) {
					end = starts[variable[k+1]]
				}
			}
		}
		if err := f.unmarshal(buf[starts[i]:end]); err != nil {
			return err
		}
	}
	return nil
}

type sszCodec interface {
	MarshalSSZ() ([]byte, error)
	UnmarshalSSZ([]byte) error
}

func errFieldMissing(name string) error {
	return fmt.Errorf("%s missing", name)
}

// objectField encodes *obj behind an offset and allocates it on decode.
func objectField[T any, PT interface {
	*T
	sszCodec
}](name string, obj *PT) sszField {
	return variableField(
		func() ([]byte, error) {
			if *obj == nil {
				return nil, errFieldMissing(name)
			}
			return (*obj).MarshalSSZ()
		},
		func(buf []byte) error {
			*obj = PT(new(T))
			return (*obj).UnmarshalSSZ(buf)
		},
	)
}

func bidTraceField(bidTrace **builderApiV1.BidTrace) sszField {
	return fixedField(bidTraceSSZSize,
		func() ([]byte, error) {
			if *bidTrace == nil {
				return nil, errFieldMissing("bid_trace")
			}
			return (*bidTrace).MarshalSSZ()
		},
		func(buf []byte) error {
			*bidTrace = new(builderApiV1.BidTrace)
			return (*bidTrace).UnmarshalSSZ(buf)
		},
	)
}

func signatureField(sig *phase0.BLSSignature) sszField {
	return fixedField(signatureSize,
		func() ([]byte, error) { return sig[:], nil },
		func(buf []byte) error {
			copy(sig[:], buf)
			return nil
		},
	)
}
