package test_utils

import (
	"context"

	"github.com/NescAdmin/nesc-planering/pkg/company"
)

// CompanyContext returns a context carrying the given company id, the way the
// resolution middleware installs one. Service and handler tests use it
// instead of running requests through the full router.
func CompanyContext(id string) context.Context {
	return company.WithCompany(context.Background(), company.Company{Id: id, Name: "NESC"})
}
