package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists payroll specifications and employees in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetEmployee loads one employee record.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	var emp Employee
	err := r.pool.QueryRow(ctx, `SELECT id, name, tax_table, tax_column
FROM employees WHERE id=$1`, id).
		Scan(&emp.ID, &emp.Name, &emp.TaxTable, &emp.TaxColumn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrEmployeeNotFound
		}
		return Employee{}, err
	}
	return emp, nil
}

// ListEmployees returns all employees keyed by id.
func (r *Repository) ListEmployees(ctx context.Context) (map[int64]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, tax_table, tax_column
FROM employees ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Employee)
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.TaxTable, &emp.TaxColumn); err != nil {
			return nil, err
		}
		out[emp.ID] = emp
	}
	return out, rows.Err()
}

// GetSpecification loads one employee's payroll for one period with its
// extra rows in stable insertion order.
func (r *Repository) GetSpecification(ctx context.Context, employeeID int64, year int, month time.Month) (Specification, error) {
	spec, err := scanSpecification(r.pool.QueryRow(ctx, `SELECT id, employee_id, year, month, base_salary, overtime,
	computed_gross, computed_tax, computed_social_fees, computed_net, updated_at
FROM payroll_specs WHERE employee_id=$1 AND year=$2 AND month=$3`, employeeID, year, int(month)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Specification{}, ErrSpecNotFound
		}
		return Specification{}, err
	}
	spec.ExtraRows, err = r.loadExtraRows(ctx, spec.ID)
	return spec, err
}

// ListSpecifications returns every specification of one period, employee
// order ascending, each with its extra rows.
func (r *Repository) ListSpecifications(ctx context.Context, year int, month time.Month) ([]Specification, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, employee_id, year, month, base_salary, overtime,
	computed_gross, computed_tax, computed_social_fees, computed_net, updated_at
FROM payroll_specs WHERE year=$1 AND month=$2 ORDER BY employee_id ASC`, year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var specs []Specification
	for rows.Next() {
		spec, err := scanSpecification(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range specs {
		if specs[i].ExtraRows, err = r.loadExtraRows(ctx, specs[i].ID); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// UpsertSpecification replaces one specification and its extra rows inside
// one transaction. Rows are rewritten wholesale; partial row updates are
// never observable.
func (r *Repository) UpsertSpecification(ctx context.Context, spec Specification) (Specification, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Specification{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx, `INSERT INTO payroll_specs
	(employee_id, year, month, base_salary, overtime,
	 computed_gross, computed_tax, computed_social_fees, computed_net, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (employee_id, year, month) DO UPDATE SET
	base_salary=EXCLUDED.base_salary,
	overtime=EXCLUDED.overtime,
	computed_gross=EXCLUDED.computed_gross,
	computed_tax=EXCLUDED.computed_tax,
	computed_social_fees=EXCLUDED.computed_social_fees,
	computed_net=EXCLUDED.computed_net,
	updated_at=EXCLUDED.updated_at
RETURNING id`,
		spec.EmployeeID, spec.Year, int(spec.Month),
		spec.BaseSalary.StringFixed(2), spec.Overtime.StringFixed(2),
		spec.ComputedGross.StringFixed(2), spec.ComputedTax.StringFixed(2),
		spec.ComputedSocialFees.StringFixed(2), spec.ComputedNet.StringFixed(2),
		spec.UpdatedAt).Scan(&spec.ID)
	if err != nil {
		return Specification{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM payroll_extra_rows WHERE spec_id=$1`, spec.ID); err != nil {
		return Specification{}, err
	}
	for i, row := range spec.ExtraRows {
		if _, err := tx.Exec(ctx, `INSERT INTO payroll_extra_rows
	(spec_id, position, row_type, quantity, rate, comment, computed_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			spec.ID, i, string(row.Type), row.Quantity.String(), row.Rate.String(),
			row.Comment, row.ComputedAmount.StringFixed(2)); err != nil {
			return Specification{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Specification{}, err
	}
	return spec, nil
}

// DeleteSpecification removes one specification and its rows.
func (r *Repository) DeleteSpecification(ctx context.Context, employeeID int64, year int, month time.Month) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM payroll_specs
WHERE employee_id=$1 AND year=$2 AND month=$3`, employeeID, year, int(month)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSpecNotFound
		}
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM payroll_extra_rows WHERE spec_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM payroll_specs WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) loadExtraRows(ctx context.Context, specID int64) ([]ExtraRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT row_type, quantity, rate, comment, computed_amount
FROM payroll_extra_rows WHERE spec_id=$1 ORDER BY position ASC`, specID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExtraRow
	for rows.Next() {
		var row ExtraRow
		var rowType, quantity, rate, amount string
		if err := rows.Scan(&rowType, &quantity, &rate, &row.Comment, &amount); err != nil {
			return nil, err
		}
		row.Type = RowType(rowType)
		if row.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if row.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		if row.ComputedAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpecification(row rowScanner) (Specification, error) {
	var spec Specification
	var month int
	var baseSalary, overtime, gross, tax, social, net string
	if err := row.Scan(&spec.ID, &spec.EmployeeID, &spec.Year, &month, &baseSalary, &overtime,
		&gross, &tax, &social, &net, &spec.UpdatedAt); err != nil {
		return Specification{}, err
	}
	spec.Month = time.Month(month)
	var err error
	if spec.BaseSalary, err = decimal.NewFromString(baseSalary); err != nil {
		return Specification{}, err
	}
	if spec.Overtime, err = decimal.NewFromString(overtime); err != nil {
		return Specification{}, err
	}
	if spec.ComputedGross, err = decimal.NewFromString(gross); err != nil {
		return Specification{}, err
	}
	if spec.ComputedTax, err = decimal.NewFromString(tax); err != nil {
		return Specification{}, err
	}
	if spec.ComputedSocialFees, err = decimal.NewFromString(social); err != nil {
		return Specification{}, err
	}
	if spec.ComputedNet, err = decimal.NewFromString(net); err != nil {
		return Specification{}, err
	}
	return spec, nil
}
