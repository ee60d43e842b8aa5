package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a token manager", t, func() {
		m, err := NewManager("secret", time.Hour)
		So(err, ShouldBeNil)

		Convey("When a token is issued", func() {
			tok, err := m.Issue("user-1")
			So(err, ShouldBeNil)

			Convey("Then it parses back to the user", func() {
				c, err := m.Parse(tok)
				So(err, ShouldBeNil)
				So(c.UserID, ShouldEqual, "user-1")
				So(c.Subject, ShouldEqual, "user-1")
			})

			Convey("Then another secret rejects it", func() {
				other, _ := NewManager("other", time.Hour)
				_, err := other.Parse(tok)
				So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When the token has expired", func() {
			m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
			tok, err := m.Issue("user-1")
			So(err, ShouldBeNil)
			m.now = time.Now

			_, err = m.Parse(tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
			So(errors.Is(err, jwt.ErrTokenExpired), ShouldBeTrue)
		})

		Convey("When the token uses the none algorithm", func() {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"}).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			So(err, ShouldBeNil)
			_, err = m.Parse(tok)
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the input is garbage or empty", func() {
			_, err := m.Parse("not-a-token")
			So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
			_, err = m.Issue("")
			So(errors.Is(err, ErrEmptyUser), ShouldBeTrue)
		})
	})

	Convey("Given an empty secret", t, func() {
		_, err := NewManager("", 0)
		So(errors.Is(err, ErrEmptySecret), ShouldBeTrue)
	})
}
