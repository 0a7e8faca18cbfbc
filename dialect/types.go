package dialect

import (
	"github.com/go-openapi/inflect"

	"github.com/syssam/prax/schema"
)

// ScalarColumnType returns the SQL column type for a scalar kind in the
// given dialect. DuckDB follows the Postgres family with its own spellings.
func ScalarColumnType(dialect string, k schema.ScalarKind) string {
	switch dialect {
	case Postgres:
		return pgScalar(k)
	case DuckDB:
		return duckScalar(k)
	case MySQL:
		return myScalar(k)
	case SQLite:
		return liteScalar(k)
	case MSSQL:
		return msScalar(k)
	default:
		return pgScalar(k)
	}
}

func pgScalar(k schema.ScalarKind) string {
	switch k {
	case schema.ScalarInt:
		return "INTEGER"
	case schema.ScalarBigInt:
		return "BIGINT"
	case schema.ScalarFloat:
		return "DOUBLE PRECISION"
	case schema.ScalarDecimal:
		return "DECIMAL"
	case schema.ScalarString:
		return "TEXT"
	case schema.ScalarBoolean:
		return "BOOLEAN"
	case schema.ScalarDateTime:
		return "TIMESTAMPTZ"
	case schema.ScalarDate:
		return "DATE"
	case schema.ScalarTime:
		return "TIME"
	case schema.ScalarJSON:
		return "JSONB"
	case schema.ScalarBytes:
		return "BYTEA"
	case schema.ScalarUUID:
		return "UUID"
	default: // Cuid, Cuid2, NanoId, Ulid
		return "TEXT"
	}
}

func duckScalar(k schema.ScalarKind) string {
	switch k {
	case schema.ScalarInt:
		return "INTEGER"
	case schema.ScalarBigInt:
		return "BIGINT"
	case schema.ScalarFloat:
		return "DOUBLE"
	case schema.ScalarDecimal:
		return "DECIMAL"
	case schema.ScalarString:
		return "TEXT"
	case schema.ScalarBoolean:
		return "BOOLEAN"
	case schema.ScalarDateTime:
		return "TIMESTAMPTZ"
	case schema.ScalarDate:
		return "DATE"
	case schema.ScalarTime:
		return "TIME"
	case schema.ScalarJSON:
		return "JSON"
	case schema.ScalarBytes:
		return "BLOB"
	case schema.ScalarUUID:
		return "UUID"
	default:
		return "TEXT"
	}
}

func myScalar(k schema.ScalarKind) string {
	switch k {
	case schema.ScalarInt:
		return "INT"
	case schema.ScalarBigInt:
		return "BIGINT"
	case schema.ScalarFloat:
		return "DOUBLE"
	case schema.ScalarDecimal:
		return "DECIMAL"
	case schema.ScalarString:
		return "TEXT"
	case schema.ScalarBoolean:
		return "TINYINT(1)"
	case schema.ScalarDateTime:
		return "DATETIME"
	case schema.ScalarDate:
		return "DATE"
	case schema.ScalarTime:
		return "TIME"
	case schema.ScalarJSON:
		return "JSON"
	case schema.ScalarBytes:
		return "BLOB"
	case schema.ScalarUUID:
		return "CHAR(36)"
	default:
		return "VARCHAR(32)"
	}
}

func liteScalar(k schema.ScalarKind) string {
	switch k {
	case schema.ScalarInt, schema.ScalarBigInt, schema.ScalarBoolean:
		return "INTEGER"
	case schema.ScalarFloat:
		return "REAL"
	case schema.ScalarDecimal:
		return "NUMERIC"
	case schema.ScalarBytes:
		return "BLOB"
	default:
		// Strings, temporal kinds, JSON and generated ids are stored as TEXT.
		return "TEXT"
	}
}

func msScalar(k schema.ScalarKind) string {
	switch k {
	case schema.ScalarInt:
		return "INT"
	case schema.ScalarBigInt:
		return "BIGINT"
	case schema.ScalarFloat:
		return "FLOAT"
	case schema.ScalarDecimal:
		return "DECIMAL"
	case schema.ScalarString, schema.ScalarJSON:
		return "NVARCHAR(MAX)"
	case schema.ScalarBoolean:
		return "BIT"
	case schema.ScalarDateTime:
		return "DATETIME2"
	case schema.ScalarDate:
		return "DATE"
	case schema.ScalarTime:
		return "TIME"
	case schema.ScalarBytes:
		return "VARBINARY(MAX)"
	case schema.ScalarUUID:
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(32)"
	}
}

// jsonColumnType is the column type used to store list fields on dialects
// without native arrays.
func jsonColumnType(dialect string) string {
	switch dialect {
	case MySQL:
		return "JSON"
	case MSSQL:
		return "NVARCHAR(MAX)"
	default:
		return "TEXT"
	}
}

// ColumnType returns the SQL column type for a field type and modifier in
// the given dialect. List fields map to native arrays where the dialect
// supports them and to a JSON column otherwise. Enum references map to the
// underscored enum type name on Postgres and to the dialect's text type
// elsewhere; the DDL generator refines enum columns where it has the full
// enum definition (e.g. inline ENUM(...) on MySQL). Composite references
// are stored as JSON. Unsupported types pass through verbatim.
func ColumnType(dialect string, t schema.FieldType, m schema.TypeModifier) string {
	base := ""
	switch t.Kind {
	case schema.KindScalar:
		base = ScalarColumnType(dialect, t.Scalar)
	case schema.KindEnum:
		if dialect == Postgres {
			base = inflect.Underscore(t.Ref)
		} else {
			base = ScalarColumnType(dialect, schema.ScalarString)
		}
	case schema.KindComposite:
		base = ScalarColumnType(dialect, schema.ScalarJSON)
	case schema.KindUnsupported:
		base = t.Raw
	default:
		// Model references have no column of their own; the foreign-key
		// scalar fields carry the storage.
		return ""
	}
	if m.IsList() {
		if SupportsArrays(dialect) {
			return base + "[]"
		}
		return jsonColumnType(dialect)
	}
	return base
}
