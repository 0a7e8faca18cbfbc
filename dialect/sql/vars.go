package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/prax/dialect"
)

// ctxVarsKey carries the session variables attached with WithVar.
type ctxVarsKey struct{}

// sessionVar is one name/value pair to bind before a statement runs.
type sessionVar struct {
	name  string
	value string
}

// WithVar returns a context that makes the driver bind the session
// variable before every statement executed with it. On a plain DB the
// driver checks out a single connection, binds the variables there and
// resets them when the work finishes, so the binding never leaks into the
// pool. Inside a transaction the binding shares the transaction's
// connection; on Postgres it is set with SET LOCAL and dies with the
// transaction.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	// Sibling contexts derived from one parent must not share a backing
	// array, so the slice is copied before the append.
	next := make([]sessionVar, len(vars), len(vars)+1)
	copy(next, vars)
	next = append(next, sessionVar{name: name, value: value})
	return context.WithValue(ctx, ctxVarsKey{}, next)
}

// WithIntVar is WithVar for integer values.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext reports the value the driver would bind for name. When
// the variable was attached more than once, the most recent value wins,
// matching the order the set statements execute in.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].name == name {
			return vars[i].value, true
		}
	}
	return "", false
}

// varNamePattern admits identifier chains like "app.tenant_id".
var varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func validVarName(s string) bool {
	return len(s) <= 128 && varNamePattern.MatchString(s)
}

// quoteVarValue renders the value as a single-quoted literal. Doubling
// embedded quotes is enough everywhere but MySQL, which also treats
// backslash as an escape inside string literals, and SQL Server, where
// the N prefix keeps non-ASCII tenant ids intact.
func quoteVarValue(d, s string) string {
	if d == dialect.MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	q := "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if d == dialect.MSSQL {
		return "N" + q
	}
	return q
}

// mysqlVar maps dotted variable names onto MySQL user variables, which
// cannot contain dots.
func mysqlVar(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// varStatements renders the statements that bind vars on the dialect and,
// outside a transaction, the statements that undo the binding before the
// connection returns to the pool. Inside a transaction no reset list is
// produced: the Postgres binding is transaction local, and on MySQL and
// SQL Server the caller owns the transaction's connection. Names are
// validated before anything renders, so a bad variable never executes a
// partial set.
func varStatements(d string, vars []sessionVar, inTx bool) (set, reset []string, err error) {
	for _, v := range vars {
		if !validVarName(v.name) {
			return nil, nil, fmt.Errorf("dialect/sql: invalid session variable name %q", v.name)
		}
	}
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		value := quoteVarValue(d, v.value)
		switch d {
		case dialect.Postgres:
			if inTx {
				set = append(set, "SET LOCAL "+v.name+" = "+value)
			} else {
				set = append(set, "SET "+v.name+" = "+value)
			}
		case dialect.MySQL:
			set = append(set, "SET @"+mysqlVar(v.name)+" = "+value)
		case dialect.MSSQL:
			set = append(set, "EXEC sp_set_session_context @key = N'"+v.name+"', @value = "+value)
		default:
			// SQLite and DuckDB have no session state. Failing loudly
			// beats running the statement without its tenant binding.
			return nil, nil, fmt.Errorf("dialect/sql: dialect %q does not support session variables", d)
		}
		if inTx {
			continue
		}
		if _, ok := seen[v.name]; ok {
			continue
		}
		seen[v.name] = struct{}{}
		switch d {
		case dialect.Postgres:
			reset = append(reset, "RESET "+v.name)
		case dialect.MySQL:
			reset = append(reset, "SET @"+mysqlVar(v.name)+" = NULL")
		case dialect.MSSQL:
			reset = append(reset, "EXEC sp_set_session_context @key = N'"+v.name+"', @value = NULL")
		}
	}
	return set, reset, nil
}

// applyVars binds the context session variables and returns the execution
// target for the statement that follows. A *sql.Tx already pins a
// connection and is used as is. A *sql.DB checks out one connection so
// the bindings and the statement share a session; the returned release
// function resets the bindings and puts the connection back.
func (c Conn) applyVars(ctx context.Context) (ex ExecQuerier, release func() error, err error) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return c, nil, nil
	}
	var inTx bool
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex, inTx = e, true
	case *sql.DB:
		conn, cerr := e.Conn(ctx)
		if cerr != nil {
			return nil, nil, cerr
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("dialect/sql: cannot bind session variables on %T", c.ExecQuerier)
	}
	set, reset, err := varStatements(c.dialect, vars, inTx)
	if err == nil {
		for _, stmt := range set {
			if _, err = ex.ExecContext(ctx, stmt); err != nil {
				break
			}
		}
	}
	if err != nil {
		if release != nil {
			err = errors.Join(err, release())
		}
		return nil, nil, err
	}
	if len(reset) > 0 && release != nil {
		release = resetOnRelease(ex, reset, release)
	}
	return ex, release, nil
}

// resetOnRelease clears the session bindings before the connection goes
// back to the pool. The resets run on their own deadline, so a canceled
// request cannot leak a bound connection.
func resetOnRelease(ex ExecQuerier, reset []string, close func() error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, stmt := range reset {
			if _, err := ex.ExecContext(ctx, stmt); err != nil {
				return errors.Join(err, close())
			}
		}
		return close()
	}
}

// closerRows runs an extra closer after the rows close, releasing the
// connection the session variables were bound on.
type closerRows struct {
	ColumnScanner
	closer func() error
}

func (r closerRows) Close() error {
	return errors.Join(r.ColumnScanner.Close(), r.closer())
}
