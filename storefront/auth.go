package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"snapshop/database"
	"snapshop/models"
	"snapshop/session"
)

// SignUp creates a user document with an empty cart and no orders. It does
// not sign the user in. Emails are compared exactly against the known users.
func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if _, ok := c.findUser(func(u models.User) bool { return u.Email == email }); ok {
		c.notifier.Error(msgEmailTaken)
		return ErrEmailTaken
	}

	stored := password
	if c.hashPasswords {
		hashed, err := HashPassword(password)
		if err != nil {
			return err
		}
		stored = hashed
	}

	user := models.User{
		Name:     name,
		Email:    email,
		Password: stored,
		Cart:     []models.CartItem{},
		Orders:   []models.Order{},
	}
	err := c.remote(ctx, func(ctx context.Context) error {
		_, err := c.store.CreateUser(ctx, user)
		return err
	})
	if errors.Is(err, database.ErrDuplicateEmail) {
		c.notifier.Error(msgEmailTaken)
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}

	c.notifier.Success(msgSignedUp)
	return nil
}

// SignIn checks the credentials against the known users and starts a
// session. Exactly one of ErrUnknownEmail, ErrWrongPassword or nil is returned
// for valid storage.
func (c *Client) SignIn(email, password string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	user, ok := c.findUser(func(u models.User) bool { return u.Email == email })
	if !ok {
		c.notifier.Error(msgUnknownEmail)
		return ErrUnknownEmail
	}
	if !c.checkPassword(user.Password, password) {
		c.notifier.Error(msgWrongPassword)
		return ErrWrongPassword
	}

	if err := c.saveMarkers(user); err != nil {
		return err
	}
	c.dispatch(sessionStarted{user: user})
	c.notifier.Success(msgSignedIn)
	return nil
}

func (c *Client) SignOut() error {
	c.ops.Lock()
	defer c.ops.Unlock()

	err := c.clearMarkers()
	c.dispatch(sessionEnded{})
	c.stopDocumentWatch()
	c.notifier.Success(msgSignedOut)
	return err
}

// RestoreSession brings back a session saved by SignIn in the local storage,
// provided its token is still valid for the stored user.
func (c *Client) RestoreSession() error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if c.State().IsLoggedIn {
		return nil
	}

	token, ok, err := c.storage.Get(session.TokenKey)
	if err != nil {
		return fmt.Errorf("read session token: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	raw, ok, err := c.storage.Get(session.UserKey)
	if err != nil {
		return fmt.Errorf("read session user: %w", err)
	}

	var stored models.User
	valid := ok && json.Unmarshal([]byte(raw), &stored) == nil
	if valid {
		userID, err := c.tokens.Verify(token)
		valid = err == nil && userID == stored.ID
	}
	if !valid {
		if err := c.clearMarkers(); err != nil {
			return err
		}
		return ErrNoSession
	}

	user := stored
	if fresh, ok := c.findUser(func(u models.User) bool { return u.ID == stored.ID }); ok {
		user = fresh
	}
	c.dispatch(sessionStarted{user: user})
	return nil
}

func (c *Client) saveMarkers(user models.User) error {
	token, err := c.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	record, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	if err := c.storage.Set(session.TokenKey, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	if err := c.storage.Set(session.UserKey, string(record)); err != nil {
		return fmt.Errorf("store session user: %w", err)
	}
	return nil
}

func (c *Client) clearMarkers() error {
	err := errors.Join(c.storage.Remove(session.TokenKey), c.storage.Remove(session.UserKey))
	if err != nil {
		return fmt.Errorf("clear session markers: %w", err)
	}
	return nil
}

func (c *Client) findUser(match func(models.User) bool) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, u := range c.state.Users {
		if match(u) {
			return cloneUser(u), true
		}
	}
	return models.User{}, false
}
