package gossip

import (
	"encoding/json"
	"fmt"

	"github.com/alxayo/shortwave/internal/shortwave/domain"
)

// envelopeKind tags the wire payload carried on a gossip topic. Both topics
// share the same tagged-union shape; only the legal kind per topic differs.
type envelopeKind string

const (
	kindAdvertise envelopeKind = "Advertise"
	kindRelease   envelopeKind = "Release"
)

type envelope struct {
	Type envelopeKind    `json:"type"`
	Data json.RawMessage `json:"data"`
}

func encodeAdvertise(ad domain.StationAdvertisement) ([]byte, error) {
	data, err := json.Marshal(ad)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: kindAdvertise, Data: data})
}

func encodeRelease(rel domain.ReleaseRequest) ([]byte, error) {
	data, err := json.Marshal(rel)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: kindRelease, Data: data})
}

// decode unmarshals a wire envelope into either an advertisement or a
// release, reporting which kind it found.
func decode(raw []byte) (envelopeKind, domain.StationAdvertisement, domain.ReleaseRequest, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", domain.StationAdvertisement{}, domain.ReleaseRequest{}, err
	}
	switch env.Type {
	case kindAdvertise:
		var ad domain.StationAdvertisement
		if err := json.Unmarshal(env.Data, &ad); err != nil {
			return "", domain.StationAdvertisement{}, domain.ReleaseRequest{}, err
		}
		return kindAdvertise, ad, domain.ReleaseRequest{}, nil
	case kindRelease:
		var rel domain.ReleaseRequest
		if err := json.Unmarshal(env.Data, &rel); err != nil {
			return "", domain.StationAdvertisement{}, domain.ReleaseRequest{}, err
		}
		return kindRelease, domain.StationAdvertisement{}, rel, nil
	default:
		return "", domain.StationAdvertisement{}, domain.ReleaseRequest{}, fmt.Errorf("gossip: unknown envelope type %q", env.Type)
	}
}
