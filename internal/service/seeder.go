package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const SecretaryEmail = "secretary@medical-office.local"

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Gynecology",
	"Ophthalmology",
	"Orthopedics",
	"Psychiatry",
}

type SeedOptions struct {
	Practitioners int
	Patients      int
	Password      string
	// Seed makes the generated data reproducible; 0 picks a random seed.
	Seed uint64
}

type SeedSummary struct {
	Secretaries   int
	Practitioners int
	Patients      int
}

// Seeder fills an empty database with demo staff, practitioners and patients.
type Seeder struct {
	tx               repository.Transactor
	log              *logrus.Logger
	userRepo         repository.UserRepository
	roleRepo         repository.RoleRepository
	patientRepo      repository.PatientProfileRepository
	practitionerRepo repository.PractitionerProfileRepository
}

func NewSeeder(
	tx repository.Transactor,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	patientRepo repository.PatientProfileRepository,
	practitionerRepo repository.PractitionerProfileRepository,
) *Seeder {
	return &Seeder{
		tx:               tx,
		log:              log,
		userRepo:         userRepo,
		roleRepo:         roleRepo,
		patientRepo:      patientRepo,
		practitionerRepo: practitionerRepo,
	}
}

func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (*SeedSummary, error) {
	if opts.Password == "" {
		return nil, fmt.Errorf("seed password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	faker := gofakeit.New(opts.Seed)
	summary := &SeedSummary{}

	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.roleRepo.Upsert(ctx, tx, entity.DefaultRoles()); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}

		created, err := s.ensureUser(ctx, tx, &entity.User{
			RoleID:   entity.RoleIDSecretary,
			Email:    SecretaryEmail,
			Password: string(hash),
			FullName: "Front Desk",
			IsActive: true,
		})
		if err != nil {
			return err
		}
		if created {
			summary.Secretaries++
		}

		for i := 0; i < opts.Practitioners; i++ {
			user := &entity.User{
				RoleID:   entity.RoleIDDoctor,
				Email:    fakeEmail(faker, "dr", i),
				Password: string(hash),
				FullName: faker.Name(),
				IsActive: true,
			}
			created, err := s.ensureUser(ctx, tx, user)
			if err != nil {
				return err
			}
			if !created {
				continue
			}

			fee := decimal.NewFromFloat(faker.Price(25, 150)).Round(2)
			profile := &entity.PractitionerProfile{
				UserID:          user.ID,
				Specialty:       faker.RandomString(specialties),
				LicenseNumber:   faker.Numerify("LIC-########"),
				ConsultationFee: fee,
			}
			if err := s.practitionerRepo.Create(ctx, tx, profile); err != nil {
				return fmt.Errorf("seed practitioner profile: %w", err)
			}
			summary.Practitioners++
		}

		existing, err := s.patientRepo.CountAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("count patients: %w", err)
		}

		for i := 0; i < opts.Patients; i++ {
			user := &entity.User{
				RoleID:   entity.RoleIDPatient,
				Email:    fakeEmail(faker, "pt", i),
				Password: string(hash),
				FullName: faker.Name(),
				IsActive: true,
			}
			created, err := s.ensureUser(ctx, tx, user)
			if err != nil {
				return err
			}
			if !created {
				continue
			}

			dob := faker.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
			).Truncate(24 * time.Hour)
			gender := entity.GenderFemale
			if faker.Bool() {
				gender = entity.GenderMale
			}
			profile := &entity.PatientProfile{
				UserID:       user.ID,
				RecordNumber: fmt.Sprintf("MR-%06d", existing+int64(summary.Patients)+1),
				PhoneNumber:  faker.Numerify("+1##########"),
				DateOfBirth:  &dob,
				Gender:       gender,
				Address:      faker.Address().Address,
			}
			if err := s.patientRepo.Create(ctx, tx, profile); err != nil {
				return fmt.Errorf("seed patient profile: %w", err)
			}
			summary.Patients++
		}

		return nil
	})
	if err != nil {
		s.log.Warnf("Failed to seed database: %+v", err)
		return nil, err
	}

	s.log.Infof("Seed complete: secretaries=%d practitioners=%d patients=%d", summary.Secretaries, summary.Practitioners, summary.Patients)
	return summary, nil
}

// ensureUser creates the user unless the email is already taken.
func (s *Seeder) ensureUser(ctx context.Context, tx *gorm.DB, user *entity.User) (bool, error) {
	existing, err := s.userRepo.FindByEmail(ctx, tx, user.Email)
	if err != nil {
		return false, fmt.Errorf("find user %s: %w", user.Email, err)
	}
	if existing != nil {
		return false, nil
	}
	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		return false, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return true, nil
}

func fakeEmail(faker *gofakeit.Faker, prefix string, i int) string {
	local := strings.ToLower(faker.FirstName() + "." + faker.LastName())
	local = strings.NewReplacer(" ", "", "'", "").Replace(local)
	return fmt.Sprintf("%s.%s.%d@example.com", prefix, local, i)
}
