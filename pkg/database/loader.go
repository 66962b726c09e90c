package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"rfm-segments/pkg/models"
	"rfm-segments/pkg/tabular"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Noms de driver database/sql.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Source est une connexion ouverte et le dialecte à utiliser pour la requête.
type Source struct {
	DB     *sql.DB
	Driver string
}

func (s *Source) Close() error { return s.DB.Close() }

// Open choisit le driver d'après le schéma du DSN :
// mariadb:// ou mysql:// → MySQL, postgres:// → PostgreSQL, sqlite:// ou *.db → SQLite.
// Le DSN effectivement utilisé est renvoyé pour les logs.
func Open(dsn string) (*Source, string, error) {
	driver, native, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Source{DB: db, Driver: driver}, native, nil
}

func resolveDSN(dsn string) (driver, native string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("dsn incomplet (chemin sqlite)")
		}
		return DriverSQLite, path, nil
	case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return DriverSQLite, dsn, nil
	}
	native, err = toMySQLDSN(dsn)
	if err != nil {
		return "", "", err
	}
	return DriverMySQL, native, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// quoteIdent protège un identifiant déjà validé selon le dialecte.
func quoteIdent(driver, name string) string {
	if driver == DriverMySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// LoadTransactions lit (client, date, montant) depuis une table. Toute ligne
// incomplète ou illisible renvoie une *models.DataError : rien n'est ignoré.
func LoadTransactions(ctx context.Context, src *Source, tableName string, cols models.ColumnMapping, layouts []string) ([]models.Transaction, error) {
	for _, ident := range []string{tableName, cols.Customer, cols.Date, cols.Amount} {
		if !identRe.MatchString(ident) {
			return nil, fmt.Errorf("identifiant invalide %q", ident)
		}
	}

	q := fmt.Sprintf(`SELECT %s, %s, %s FROM %s`,
		quoteIdent(src.Driver, cols.Customer),
		quoteIdent(src.Driver, cols.Date),
		quoteIdent(src.Driver, cols.Amount),
		quoteIdent(src.Driver, tableName),
	)

	rows, err := src.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	row := 0
	for rows.Next() {
		row++
		var (
			customer sql.NullString
			date     any
			amount   sql.NullFloat64
		)
		if err := rows.Scan(&customer, &date, &amount); err != nil {
			return nil, &models.DataError{Row: row, Reason: err.Error()}
		}
		if !customer.Valid || strings.TrimSpace(customer.String) == "" {
			return nil, &models.DataError{Row: row, Column: cols.Customer, Reason: "null customer identifier"}
		}
		if !amount.Valid {
			return nil, &models.DataError{Row: row, Column: cols.Amount, Reason: "null amount"}
		}
		if math.IsNaN(amount.Float64) || math.IsInf(amount.Float64, 0) {
			return nil, &models.DataError{Row: row, Column: cols.Amount, Reason: "amount is not finite"}
		}
		d, err := scanDate(date, layouts)
		if err != nil {
			return nil, &models.DataError{Row: row, Column: cols.Date, Reason: err.Error()}
		}
		out = append(out, models.Transaction{
			CustomerID: strings.TrimSpace(customer.String),
			Date:       d,
			Amount:     amount.Float64,
			Row:        row,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] %s: transactions lues=%d", tableName, len(out))
	return out, nil
}

// Selon le driver la date arrive en time.Time, string ou []byte.
func scanDate(v any, layouts []string) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("null date")
	case time.Time:
		return d.UTC(), nil
	case string:
		return tabular.ParseDate(d, layouts)
	case []byte:
		return tabular.ParseDate(string(d), layouts)
	}
	return time.Time{}, fmt.Errorf("unsupported date type %T", v)
}
