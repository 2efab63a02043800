package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// getSimpleText and getPassword are test seams for the interactive prompts.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

var errUsage = errors.New("usage")

func (a *App) refresh(ctx context.Context) {
	a.session.EnsureFresh(ctx)
}

func (a *App) readCredentials(withName bool) (models.Credentials, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return models.Credentials{}, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return models.Credentials{}, err
	}
	creds := models.Credentials{Email: email, Password: password}
	if withName {
		name, err := getSimpleText(a.reader, "Display name (optional)", a.out)
		if err != nil {
			common.WipeByteArray(password)
			return models.Credentials{}, err
		}
		creds.DisplayName = name
	}
	return creds, nil
}

// Register creates an account and signs it in.
func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		return errors.New("already signed in, log out first")
	}
	creds, err := a.readCredentials(true)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(creds.Password)

	sess, err := a.session.SignUp(ctx, creds)
	if err != nil {
		return err
	}
	a.printf("Welcome, %s!\n", sess.Email)
	return nil
}

// Login signs in. While the remote store is unreachable the identity provider
// falls back to the credentials cached by the last online sign-in.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		return errors.New("already signed in, log out first")
	}
	creds, err := a.readCredentials(false)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(creds.Password)

	sess, err := a.session.SignIn(ctx, creds)
	if err != nil {
		if errors.Is(err, common.ErrLocalDataNotAvailable) {
			return fmt.Errorf("the store is unreachable and this account has never signed in on this device: %w", err)
		}
		return err
	}
	if sess.Offline {
		a.setMode(ModeOffline)
		a.printf("Signed in offline as %s. Cart changes will be uploaded once the store is reachable.\n", sess.Email)
		return nil
	}
	a.printf("Signed in as %s\n", sess.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errors.New("not signed in")
	}
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	a.printf("Signed out\n")
	return nil
}

// WhoAmI prints the session snapshot.
func (a *App) WhoAmI(ctx context.Context) error {
	snap := a.session.Snapshot()
	a.printf("state:    %s\n", snap.State)
	a.printf("identity: %s\n", snap.Identity)
	if !snap.IsAuthenticated {
		return nil
	}
	a.printf("email:    %s\n", snap.Email)
	if snap.Profile != nil {
		a.printf("name:     %s\n", snap.Profile.DisplayName)
	}
	a.printf("role:     %s\n", snap.Role)
	if snap.IsLoading {
		a.printf("(profile is still loading)\n")
	}
	if snap.Degraded {
		a.printf("(profile or role could not be refreshed; showing cached data)\n")
	}
	return nil
}
