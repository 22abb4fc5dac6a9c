package shared

import (
	"net/http"
	"strings"
)

// Principal describes the authenticated caller as resolved by the upstream
// auth layer. Identity and role resolution happen outside this service; the
// gateway forwards the result in trusted headers.
type Principal struct {
	StaffID   string
	PatientID string
	Role      string
}

// IsStaff reports whether the caller acts in a staff capacity.
func (p Principal) IsStaff() bool {
	return p.StaffID != "" && p.Role != ""
}

// IsPatient reports whether the caller acts as a patient.
func (p Principal) IsPatient() bool {
	return p.PatientID != ""
}

// Header names populated by the auth gateway.
const (
	HeaderStaffID   = "X-Staff-Id"
	HeaderStaffRole = "X-Staff-Role"
	HeaderPatientID = "X-Patient-Id"
)

// PrincipalMiddleware extracts the caller identity from gateway headers and
// stores it in the request context.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Principal{
			StaffID:   strings.TrimSpace(r.Header.Get(HeaderStaffID)),
			Role:      strings.TrimSpace(strings.ToLower(r.Header.Get(HeaderStaffRole))),
			PatientID: strings.TrimSpace(r.Header.Get(HeaderPatientID)),
		}
		ctx := ContextWithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
