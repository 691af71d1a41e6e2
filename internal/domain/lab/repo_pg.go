package lab

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/platform/db"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- TestType Repository --

type testTypeRepoPG struct {
	pool *pgxpool.Pool
}

func NewTestTypeRepo(pool *pgxpool.Pool) TestTypeRepository {
	return &testTypeRepoPG{pool: pool}
}

func (r *testTypeRepoPG) conn(ctx context.Context) querier {
	return connFor(ctx, r.pool)
}

const testTypeCols = `id, name, category, unit, normal_range_min, normal_range_max, description, created_at`

func (r *testTypeRepoPG) Create(ctx context.Context, t *TestType) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_types (name, category, unit, normal_range_min, normal_range_max, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		t.Name, t.Category, t.Unit, t.NormalRangeMin, t.NormalRangeMax, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
	return db.MapError(err, "test type", t.Name)
}

func (r *testTypeRepoPG) GetByID(ctx context.Context, id int64) (*TestType, error) {
	t, err := scanTestType(r.conn(ctx).QueryRow(ctx, `SELECT `+testTypeCols+` FROM test_types WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "test type", id)
	}
	return t, nil
}

func (r *testTypeRepoPG) GetByName(ctx context.Context, name string) (*TestType, error) {
	t, err := scanTestType(r.conn(ctx).QueryRow(ctx, `SELECT `+testTypeCols+` FROM test_types WHERE name = $1`, name))
	if err != nil {
		return nil, db.MapError(err, "test type", name)
	}
	return t, nil
}

func (r *testTypeRepoPG) Update(ctx context.Context, t *TestType) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE test_types SET name=$2, category=$3, unit=$4, normal_range_min=$5, normal_range_max=$6, description=$7
		WHERE id = $1`,
		t.ID, t.Name, t.Category, t.Unit, t.NormalRangeMin, t.NormalRangeMax, t.Description,
	)
	if err != nil {
		return db.MapError(err, "test type", t.Name)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "test type", t.ID)
	}
	return nil
}

func (r *testTypeRepoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM test_types WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "test type", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *testTypeRepoPG) List(ctx context.Context) ([]*TestType, error) {
	return r.list(ctx, `SELECT `+testTypeCols+` FROM test_types ORDER BY category NULLS FIRST, name`)
}

func (r *testTypeRepoPG) ListByCategory(ctx context.Context, category string) ([]*TestType, error) {
	return r.list(ctx, `SELECT `+testTypeCols+` FROM test_types WHERE category = $1 ORDER BY name`, category)
}

func (r *testTypeRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*TestType, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*TestType
	for rows.Next() {
		t, err := scanTestType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func scanTestType(row pgx.Row) (*TestType, error) {
	var t TestType
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Unit, &t.NormalRangeMin, &t.NormalRangeMax, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// -- TestResult Repository --

type testResultRepoPG struct {
	pool *pgxpool.Pool
}

func NewTestResultRepo(pool *pgxpool.Pool) TestResultRepository {
	return &testResultRepoPG{pool: pool}
}

func (r *testResultRepoPG) conn(ctx context.Context) querier {
	return connFor(ctx, r.pool)
}

const testResultCols = `id, visit_id, test_type_id, result_value, result_text, unit, test_date, notes, created_at`

func (r *testResultRepoPG) Create(ctx context.Context, res *TestResult) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_results (visit_id, test_type_id, result_value, result_text, unit, test_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		res.VisitID, res.TestTypeID, res.ResultValue, res.ResultText, res.Unit, res.TestDate, res.Notes,
	).Scan(&res.ID, &res.CreatedAt)
	return db.MapError(err, "test result for visit", res.VisitID)
}

func (r *testResultRepoPG) GetByID(ctx context.Context, id int64) (*TestResult, error) {
	res, err := scanTestResult(r.conn(ctx).QueryRow(ctx, `SELECT `+testResultCols+` FROM test_results WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "test result", id)
	}
	return res, nil
}

func (r *testResultRepoPG) Update(ctx context.Context, res *TestResult) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE test_results SET result_value=$2, result_text=$3, unit=$4, test_date=$5, notes=$6
		WHERE id = $1`,
		res.ID, res.ResultValue, res.ResultText, res.Unit, res.TestDate, res.Notes,
	)
	if err != nil {
		return db.MapError(err, "test result", res.ID)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "test result", res.ID)
	}
	return nil
}

func (r *testResultRepoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM test_results WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "test result", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *testResultRepoPG) ListByVisit(ctx context.Context, visitID int64) ([]*TestResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testResultCols+` FROM test_results
		WHERE visit_id = $1 ORDER BY test_date DESC, id`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*TestResult
	for rows.Next() {
		res, err := scanTestResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *testResultRepoPG) Timeline(ctx context.Context, patientID, testTypeID int64, from, to *time.Time) ([]TimelinePoint, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT tr.id, tr.visit_id, tr.test_date, tr.result_value, tr.result_text, tr.unit, tr.notes
		FROM test_results tr
		JOIN visits v ON v.id = tr.visit_id
		WHERE v.patient_id = $1 AND tr.test_type_id = $2
		  AND ($3::date IS NULL OR tr.test_date >= $3)
		  AND ($4::date IS NULL OR tr.test_date <= $4)
		ORDER BY tr.test_date, tr.id`,
		patientID, testTypeID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TimelinePoint
	for rows.Next() {
		var p TimelinePoint
		if err := rows.Scan(&p.ResultID, &p.VisitID, &p.Date, &p.Value, &p.Text, &p.Unit, &p.Notes); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *testResultRepoPG) LatestByType(ctx context.Context, patientID int64) ([]LatestResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (tt.id)
			tt.id, tt.name, tt.category, tr.test_date, tr.result_value, tr.result_text,
			COALESCE(tr.unit, tt.unit), tt.normal_range_min, tt.normal_range_max
		FROM test_results tr
		JOIN visits v ON v.id = tr.visit_id
		JOIN test_types tt ON tt.id = tr.test_type_id
		WHERE v.patient_id = $1
		ORDER BY tt.id, tr.test_date DESC, tr.id DESC`,
		patientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var latest []LatestResult
	for rows.Next() {
		var l LatestResult
		if err := rows.Scan(&l.TestTypeID, &l.TestName, &l.Category, &l.Date, &l.Value, &l.Text,
			&l.Unit, &l.NormalMin, &l.NormalMax); err != nil {
			return nil, err
		}
		latest = append(latest, l)
	}
	return latest, rows.Err()
}

func scanTestResult(row pgx.Row) (*TestResult, error) {
	var r TestResult
	err := row.Scan(&r.ID, &r.VisitID, &r.TestTypeID, &r.ResultValue, &r.ResultText, &r.Unit, &r.TestDate, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
