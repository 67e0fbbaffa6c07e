package server

import (
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware"
	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
)

// authMiddleware verifies the admin jwt token issued by the whitelist backend
func (svc *Service) authMiddleware() *jwtmiddleware.JWTMiddleware {
	return jwtmiddleware.New(jwtmiddleware.Options{
		ValidationKeyGetter: func(token *jwt.Token) (interface{}, error) {
			return []byte(svc.jwtSecret), nil
		},
		SigningMethod: jwt.SigningMethodHS256,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err string) {
			svc.logger.WithFields(logrus.Fields{
				"err":  err,
				"path": r.URL.Path,
			}).Warn("Rejected dashboard request without a valid token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		},
	})
}
