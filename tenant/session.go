package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
)

// sessionVarPattern admits dotted identifier chains ("app.tenant_id").
var sessionVarPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func validSessionVar(name string) bool {
	return sessionVarPattern.MatchString(name)
}

// doubleQuotes escapes a value for a single-quoted SQL literal. Doubling
// embedded quotes is the only transformation applied to the tenant id.
func doubleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// SessionStatements returns the statements that bind the tenant id to the
// session before any other statement runs in a tenant transaction. On
// Postgres SET LOCAL scopes the variable to the transaction, so commit or
// rollback clears it; the other dialects clear through ResetStatements on
// connection release. Dialects without session state (SQLite, DuckDB,
// MongoDB) return no statements.
func SessionStatements(d, variable string, tc Context) ([]string, error) {
	if err := dialect.Validate(d); err != nil {
		return nil, err
	}
	if !validSessionVar(variable) {
		return nil, fmt.Errorf("prax: invalid session variable name %q", variable)
	}
	id := string(tc.ID)
	switch d {
	case dialect.Postgres:
		return []string{"SET LOCAL " + variable + " = " + pq.QuoteLiteral(id) + ";"}, nil
	case dialect.MySQL:
		return []string{"SET @" + mysqlVarName(variable) + " = '" + doubleQuotes(id) + "';"}, nil
	case dialect.MSSQL:
		return []string{"EXEC sp_set_session_context @key = N'" + doubleQuotes(variable) + "', @value = N'" + doubleQuotes(id) + "';"}, nil
	default:
		return nil, nil
	}
}

// ResetStatements returns the statements that clear the session binding on
// dialects where it outlives the transaction.
func ResetStatements(d, variable string) []string {
	switch d {
	case dialect.MySQL:
		return []string{"SET @" + mysqlVarName(variable) + " = NULL;"}
	case dialect.MSSQL:
		return []string{"EXEC sp_set_session_context @key = N'" + doubleQuotes(variable) + "', @value = NULL;"}
	default:
		return nil
	}
}

// mysqlVarName maps a dotted session variable to a user-variable name;
// MySQL user variables cannot contain dots.
func mysqlVarName(variable string) string {
	return strings.ReplaceAll(variable, ".", "_")
}

// WithSessionVar marks ctx so the sql driver sets the session variable to
// the tenant id on the checked-out connection before running queries, and
// resets it on release.
func WithSessionVar(ctx context.Context, variable string, tc Context) context.Context {
	return sql.WithVar(ctx, variable, string(tc.ID))
}
