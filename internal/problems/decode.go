package problems

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/commonground-app/commonground/internal/fetcher"
)

// catalogProblem is one entry of the problems JSON catalog. Connection
// lists name other problems by display name.
type catalogProblem struct {
	Name        string   `json:"name"`
	Definition  string   `json:"definition"`
	Description string   `json:"description"`
	Drivers     []string `json:"drivers"`
	Impacts     []string `json:"impacts"`
	Broader     []string `json:"broader"`
	Narrower    []string `json:"narrower"`
}

type catalogFile struct {
	Problems []catalogProblem `json:"problems"`
}

// DecodeCatalog reads a problems JSON catalog into a registry.
// Problems referenced only as connection endpoints are created as
// stubs; a later entry for the same name merges into the stub.
func DecodeCatalog(r io.Reader) (*Registry, error) {
	file, err := fetcher.DecodeJSONObject[catalogFile](r)
	if err != nil {
		return nil, eris.Wrap(err, "problems: decode catalog")
	}

	reg := NewRegistry()
	for i, cp := range file.Problems {
		p, err := reg.Register(Problem{
			Name:        cp.Name,
			Definition:  cp.Definition,
			Description: cp.Description,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "problems: catalog entry %d", i)
		}

		for _, driver := range cp.Drivers {
			if _, err := reg.Connect(AxisCausal, driver, p.Name); err != nil {
				return nil, eris.Wrapf(err, "problems: catalog entry %d", i)
			}
		}
		for _, impact := range cp.Impacts {
			if _, err := reg.Connect(AxisCausal, p.Name, impact); err != nil {
				return nil, eris.Wrapf(err, "problems: catalog entry %d", i)
			}
		}
		for _, broader := range cp.Broader {
			if _, err := reg.Connect(AxisScope, broader, p.Name); err != nil {
				return nil, eris.Wrapf(err, "problems: catalog entry %d", i)
			}
		}
		for _, narrower := range cp.Narrower {
			if _, err := reg.Connect(AxisScope, p.Name, narrower); err != nil {
				return nil, eris.Wrapf(err, "problems: catalog entry %d", i)
			}
		}
	}

	return reg, nil
}
