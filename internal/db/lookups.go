package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getLocationByID = `
SELECT id, name, city, tax_rate, shipping_rate, active FROM locations WHERE id = $1
`

func (q *Queries) GetLocationByID(ctx context.Context, id pgtype.UUID) (Location, error) {
	var l Location
	err := q.db.QueryRow(ctx, getLocationByID, id).Scan(&l.ID, &l.Name, &l.City, &l.TaxRate, &l.ShippingRate, &l.Active)
	return l, err
}

const getAddressByID = `
SELECT id, user_id, receiver_name, phone, street, city, postal_code, country
FROM addresses WHERE id = $1
`

func (q *Queries) GetAddressByID(ctx context.Context, id pgtype.UUID) (Address, error) {
	var a Address
	err := q.db.QueryRow(ctx, getAddressByID, id).Scan(
		&a.ID, &a.UserID, &a.ReceiverName, &a.Phone, &a.Street, &a.City, &a.PostalCode, &a.Country,
	)
	return a, err
}

const getUserByID = `
SELECT id, email, name FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).Scan(&u.ID, &u.Email, &u.Name)
	return u, err
}

const listCategories = `
SELECT id, name, parent_id FROM categories ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
