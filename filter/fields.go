package filter

import "time"

// Predicate constrains the per-model predicate types declared by generated
// code, e.g. type UserPredicate *filter.Filter. Values of such types are
// assignable to *Filter, so they flow into query builders and combinators
// unchanged while keeping predicates of different models apart.
type Predicate interface {
	~*Filter
}

// StringField is a typed string column. The value is the column name;
// generated code declares them as constants.
type StringField[P Predicate] string

// Equals matches rows whose column equals v.
func (f StringField[P]) Equals(v string) P { return P(Equals(string(f), String(v))) }

// NotEquals matches rows whose column differs from v.
func (f StringField[P]) NotEquals(v string) P { return P(NotEquals(string(f), String(v))) }

// Lt matches rows whose column sorts before v.
func (f StringField[P]) Lt(v string) P { return P(Lt(string(f), String(v))) }

// Lte matches rows whose column sorts at or before v.
func (f StringField[P]) Lte(v string) P { return P(Lte(string(f), String(v))) }

// Gt matches rows whose column sorts after v.
func (f StringField[P]) Gt(v string) P { return P(Gt(string(f), String(v))) }

// Gte matches rows whose column sorts at or after v.
func (f StringField[P]) Gte(v string) P { return P(Gte(string(f), String(v))) }

// Contains matches rows whose column contains v.
func (f StringField[P]) Contains(v string) P { return P(Contains(string(f), String(v))) }

// StartsWith matches rows whose column starts with v.
func (f StringField[P]) StartsWith(v string) P { return P(StartsWith(string(f), String(v))) }

// EndsWith matches rows whose column ends with v.
func (f StringField[P]) EndsWith(v string) P { return P(EndsWith(string(f), String(v))) }

// In matches rows whose column equals one of vs.
func (f StringField[P]) In(vs ...string) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = String(v)
	}
	return P(In(string(f), values...))
}

// NotIn matches rows whose column equals none of vs.
func (f StringField[P]) NotIn(vs ...string) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = String(v)
	}
	return P(NotIn(string(f), values...))
}

// IsNull matches rows whose column is NULL.
func (f StringField[P]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f StringField[P]) IsNotNull() P { return P(IsNotNull(string(f))) }

// IntField is a typed integer column.
type IntField[P Predicate] string

// Equals matches rows whose column equals v.
func (f IntField[P]) Equals(v int64) P { return P(Equals(string(f), Int(v))) }

// NotEquals matches rows whose column differs from v.
func (f IntField[P]) NotEquals(v int64) P { return P(NotEquals(string(f), Int(v))) }

// Lt matches rows whose column is less than v.
func (f IntField[P]) Lt(v int64) P { return P(Lt(string(f), Int(v))) }

// Lte matches rows whose column is at most v.
func (f IntField[P]) Lte(v int64) P { return P(Lte(string(f), Int(v))) }

// Gt matches rows whose column is greater than v.
func (f IntField[P]) Gt(v int64) P { return P(Gt(string(f), Int(v))) }

// Gte matches rows whose column is at least v.
func (f IntField[P]) Gte(v int64) P { return P(Gte(string(f), Int(v))) }

// In matches rows whose column equals one of vs.
func (f IntField[P]) In(vs ...int64) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = Int(v)
	}
	return P(In(string(f), values...))
}

// NotIn matches rows whose column equals none of vs.
func (f IntField[P]) NotIn(vs ...int64) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = Int(v)
	}
	return P(NotIn(string(f), values...))
}

// IsNull matches rows whose column is NULL.
func (f IntField[P]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f IntField[P]) IsNotNull() P { return P(IsNotNull(string(f))) }

// FloatField is a typed float column.
type FloatField[P Predicate] string

// Equals matches rows whose column equals v.
func (f FloatField[P]) Equals(v float64) P { return P(Equals(string(f), Float(v))) }

// NotEquals matches rows whose column differs from v.
func (f FloatField[P]) NotEquals(v float64) P { return P(NotEquals(string(f), Float(v))) }

// Lt matches rows whose column is less than v.
func (f FloatField[P]) Lt(v float64) P { return P(Lt(string(f), Float(v))) }

// Lte matches rows whose column is at most v.
func (f FloatField[P]) Lte(v float64) P { return P(Lte(string(f), Float(v))) }

// Gt matches rows whose column is greater than v.
func (f FloatField[P]) Gt(v float64) P { return P(Gt(string(f), Float(v))) }

// Gte matches rows whose column is at least v.
func (f FloatField[P]) Gte(v float64) P { return P(Gte(string(f), Float(v))) }

// IsNull matches rows whose column is NULL.
func (f FloatField[P]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f FloatField[P]) IsNotNull() P { return P(IsNotNull(string(f))) }

// BoolField is a typed boolean column.
type BoolField[P Predicate] string

// Equals matches rows whose column equals v.
func (f BoolField[P]) Equals(v bool) P { return P(Equals(string(f), Bool(v))) }

// NotEquals matches rows whose column differs from v.
func (f BoolField[P]) NotEquals(v bool) P { return P(NotEquals(string(f), Bool(v))) }

// IsNull matches rows whose column is NULL.
func (f BoolField[P]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f BoolField[P]) IsNotNull() P { return P(IsNotNull(string(f))) }

// TimeField is a typed timestamp column.
type TimeField[P Predicate] string

// Equals matches rows whose column equals v.
func (f TimeField[P]) Equals(v time.Time) P { return P(Equals(string(f), Time(v))) }

// NotEquals matches rows whose column differs from v.
func (f TimeField[P]) NotEquals(v time.Time) P { return P(NotEquals(string(f), Time(v))) }

// Before matches rows whose column is earlier than v.
func (f TimeField[P]) Before(v time.Time) P { return P(Lt(string(f), Time(v))) }

// After matches rows whose column is later than v.
func (f TimeField[P]) After(v time.Time) P { return P(Gt(string(f), Time(v))) }

// AtOrBefore matches rows whose column is at or earlier than v.
func (f TimeField[P]) AtOrBefore(v time.Time) P { return P(Lte(string(f), Time(v))) }

// AtOrAfter matches rows whose column is at or later than v.
func (f TimeField[P]) AtOrAfter(v time.Time) P { return P(Gte(string(f), Time(v))) }

// IsNull matches rows whose column is NULL.
func (f TimeField[P]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f TimeField[P]) IsNotNull() P { return P(IsNotNull(string(f))) }

// EnumField is a typed enum column; T is the generated Go enum type.
type EnumField[P Predicate, T ~string] string

// Equals matches rows whose column equals v.
func (f EnumField[P, T]) Equals(v T) P { return P(Equals(string(f), String(string(v)))) }

// NotEquals matches rows whose column differs from v.
func (f EnumField[P, T]) NotEquals(v T) P { return P(NotEquals(string(f), String(string(v)))) }

// In matches rows whose column equals one of vs.
func (f EnumField[P, T]) In(vs ...T) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = String(string(v))
	}
	return P(In(string(f), values...))
}

// NotIn matches rows whose column equals none of vs.
func (f EnumField[P, T]) NotIn(vs ...T) P {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = String(string(v))
	}
	return P(NotIn(string(f), values...))
}

// IsNull matches rows whose column is NULL.
func (f EnumField[P, T]) IsNull() P { return P(IsNull(string(f))) }

// IsNotNull matches rows whose column is not NULL.
func (f EnumField[P, T]) IsNotNull() P { return P(IsNotNull(string(f))) }
