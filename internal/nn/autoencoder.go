package nn

import (
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// AutoEncoder pairs an encoder and a decoder MLP. It has three entry
// methods, so both children are declared in Setup.
//
// Variables live under param/encoder/... and param/decoder/...
type AutoEncoder struct {
	linen.MultiBase

	EncoderWidths []int
	DecoderWidths []int

	encoder *MLP
	decoder *MLP
}

// Setup declares the encoder and decoder.
func (a *AutoEncoder) Setup() (err error) {
	if a.encoder, err = linen.Register(a, "encoder", &MLP{Widths: a.EncoderWidths}); err != nil {
		return err
	}
	a.decoder, err = linen.Register(a, "decoder", &MLP{Widths: a.DecoderWidths})
	return err
}

// Encode maps x to its latent representation.
func (a *AutoEncoder) Encode(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := a.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()
	return a.encoder.Call(x)
}

// Decode maps a latent representation back to input space.
func (a *AutoEncoder) Decode(z *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := a.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()
	return a.decoder.Call(z)
}

// Call reconstructs x.
func (a *AutoEncoder) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := a.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	z, err := a.Encode(x)
	if err != nil {
		return nil, err
	}
	return a.Decode(z)
}
