package repository

import (
	"context"
	"database/sql"
	"fmt"

	"rentacar/internal/db"
)

// ReferenceRepository serves the read-only lookups the booking core
// performs against reference data (cars, car types, locations, user
// contact info). CRUD for these tables belongs to the admin surface,
// not the core.
type ReferenceRepository struct {
	DB *sql.DB
}

func NewReferenceRepository(database *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{DB: database}
}

func (r *ReferenceRepository) GetCar(ctx context.Context, id int) (*db.Car, error) {
	var c db.Car
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, car_type_id, brand, model, year, vin, license_plate, status, created_at, updated_at
		FROM cars WHERE id = $1`, id).Scan(
		&c.ID, &c.CarTypeID, &c.Brand, &c.Model, &c.Year, &c.VIN, &c.LicensePlate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ReferenceRepository) GetCarType(ctx context.Context, id int) (*db.CarType, error) {
	var ct db.CarType
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, category, fuel_type, transmission, seats FROM car_types WHERE id = $1`, id).Scan(
		&ct.ID, &ct.Category, &ct.FuelType, &ct.Transmission, &ct.Seats)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *ReferenceRepository) GetLocation(ctx context.Context, id int) (*db.Location, error) {
	var l db.Location
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, address, city FROM locations WHERE id = $1`, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.City)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateCarStatus refreshes the derived status cache on the car row.
// Best effort; occupancy truth lives in the bookings table.
func (r *ReferenceRepository) UpdateCarStatus(ctx context.Context, carID int, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE cars SET status = $2, updated_at = NOW() WHERE id = $1 AND status NOT IN ($3, $4)`,
		carID, status, db.CarMaintenance, db.CarOutOfService)
	if err != nil {
		return fmt.Errorf("error updating car %d status cache: %w", carID, err)
	}
	return nil
}

// SetCarServiceStatus moves a car in or out of maintenance. Unlike the
// status cache, this is an authoritative admin action.
func (r *ReferenceRepository) SetCarServiceStatus(ctx context.Context, carID int, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE cars SET status = $2, updated_at = NOW() WHERE id = $1`, carID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetUserContact returns the name, email and phone used for booking
// notifications.
func (r *ReferenceRepository) GetUserContact(ctx context.Context, userID int) (name, email, phone string, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT full_name, email, COALESCE(phone, '') FROM users WHERE id = $1`, userID).Scan(&name, &email, &phone)
	return
}
