package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.ApplySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAppointments(context.Background(), pool, 60); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

// seedAppointments fills the next `days` business days with a realistic
// mix of bookings: one per day guaranteed, sometimes two or three, with
// varying types and statuses. Slots inside a day never overlap because
// each appointment takes its own hour.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, days int) error {
	log.Printf("seeding appointments over %d days", days)

	types := []appointment.Type{
		appointment.TypeMeeting,
		appointment.TypeCall,
		appointment.TypePresentation,
		appointment.TypeParticular,
		appointment.TypeViagem,
		appointment.TypeOther,
	}
	titles := []string{
		"Reunião com fornecedor",
		"Alinhamento comercial",
		"Apresentação de resultados",
		"Visita técnica",
		"Chamada com representante",
		"Revisão de contrato",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	day := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	total := 0

	for d := 0; d < days; d++ {
		current := day.AddDate(0, 0, d)
		if wd := current.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		// One to three bookings per business day, each in its own hour.
		hours := []int{9, 11, 14, 16}
		n := gofakeit.Number(1, 3)
		for i := 0; i < n; i++ {
			start := current.Add(time.Duration(hours[i]) * time.Hour)
			end := start.Add(time.Hour)

			status := appointment.StatusConfirmed
			if gofakeit.Bool() {
				status = appointment.StatusPending
			}
			typ := types[gofakeit.Number(0, len(types)-1)]
			title := titles[gofakeit.Number(0, len(titles)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, title, start_time, end_time, duration_minutes,
					status, type, client_name, client_email,
					created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			`, uuid.New(), title, start, end, 60, status, typ, gofakeit.Name(), gofakeit.Email())
			if err != nil {
				return err
			}
			total++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}
