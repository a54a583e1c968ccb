package qmsauth

import (
	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/MrEthical07/qmsauth/model"
)

// Credentials are the login form values.
type Credentials = api.Credentials

// User is the backend's current-user snapshot.
type User = model.User

// TokenPair is the access and refresh token pair.
type TokenPair = model.TokenPair

// Descriptor is a classified failure.
type Descriptor = apierr.Descriptor
