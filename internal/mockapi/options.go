package mockapi

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Options struct {
	Address    string
	Logger     logrus.FieldLogger
	BcryptCost int
	// Seed controls whether the demo catalog, users, polls and FAQs are loaded.
	Seed *bool
}

func (o Options) withDefaults() Options {
	if o.Address == "" {
		o.Address = ":5001"
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.Seed == nil {
		seed := true
		o.Seed = &seed
	}
	return o
}
