package domain

// ValidateQuery проверяет произвольное значение, пришедшее как запрос.
// Пустая строка валидна: клиент сам решает, что это no-op.
func ValidateQuery(v any) (string, error) {
	if v == nil {
		return "", ErrQueryMissing
	}
	switch q := v.(type) {
	case string:
		return q, nil
	case *string:
		if q == nil {
			return "", ErrQueryMissing
		}
		return *q, nil
	default:
		return "", ErrQueryNotString
	}
}
