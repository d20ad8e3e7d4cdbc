package model

import (
	"encoding/json"

	"github.com/solperp/permitgate/internal/adapter"
)

// BuildRequest wraps the exchange request for the build/sign endpoints.
type BuildRequest struct {
	Exchange adapter.Request `json:"exchange" binding:"required"`
	// Optional base58 session private key; overrides the tenant's
	// configured key for this call only.
	SessionKey string `json:"session_key,omitempty"`
}

// FlexStrings marshals as a bare string when it holds exactly one
// element, otherwise as an array. Single-permit calls get scalar
// fields, batches get parallel arrays.
type FlexStrings []string

func (f FlexStrings) MarshalJSON() ([]byte, error) {
	if len(f) == 1 {
		return json.Marshal(f[0])
	}
	return json.Marshal([]string(f))
}

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*f = FlexStrings{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = FlexStrings(many)
	return nil
}

// BuildResponse carries unsigned envelopes as hex canonical bytes.
type BuildResponse struct {
	Envelopes FlexStrings `json:"envelopes"`
	Nonces    []uint64    `json:"nonces"`
}

// SignResponse carries signatures and messages positionally parallel to
// the envelopes that produced them.
type SignResponse struct {
	Signatures               FlexStrings `json:"signatures"`
	Messages                 FlexStrings `json:"messages"`
	VerificationInstructions FlexStrings `json:"verification_instructions"`
	PublicKey                string      `json:"pubkey"`
	Nonces                   []uint64    `json:"nonces"`
}

// VerifyRequest checks a detached signature against a hex envelope.
type VerifyRequest struct {
	Envelope  string `json:"envelope" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	PublicKey string `json:"pubkey" binding:"required"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// Tenant is an authenticated API consumer of the gateway.
type Tenant struct {
	ID         string
	Name       string
	APIKey     string
	SessionKey string
	RPS        float64
}
