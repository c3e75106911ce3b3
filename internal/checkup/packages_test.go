package checkup

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestTasksForPackageKnown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPackageRepository(db)
	mock.ExpectQuery("SELECT tasks FROM checkup_packages").
		WithArgs("VIP").
		WillReturnRows(sqlmock.NewRows([]string{"tasks"}).
			AddRow([]byte(`{"Kan Tahlili","MR","Kardiyoloji Konsültasyonu"}`)))

	tasks, err := repo.TasksForPackage(context.Background(), "VIP")
	if err != nil {
		t.Fatalf("tasks for package: %v", err)
	}
	if len(tasks) != 3 || tasks[1] != "MR" {
		t.Fatalf("unexpected tasks: %v", tasks)
	}
}

func TestTasksForPackageUnknownFallsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPackageRepository(db)
	mock.ExpectQuery("SELECT tasks FROM checkup_packages").
		WithArgs("Bilinmeyen").
		WillReturnRows(sqlmock.NewRows([]string{"tasks"}))

	tasks, err := repo.TasksForPackage(context.Background(), "Bilinmeyen")
	if err != nil {
		t.Fatalf("tasks for package: %v", err)
	}
	if len(tasks) != len(DefaultTasks()) {
		t.Fatalf("expected default task list, got %v", tasks)
	}
}

func TestTasksForPackageNilRepository(t *testing.T) {
	var repo *PackageRepository
	tasks, err := repo.TasksForPackage(context.Background(), "Standart")
	if err != nil {
		t.Fatalf("nil repo should fall back, got %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 default tasks, got %d", len(tasks))
	}
}
