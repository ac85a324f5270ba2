package main

import (
	"time"

	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository/memory"
	"github.com/noah-isme/club-course-api/pkg/config"
)

// seedDemo fills the in-memory store with one course organization, a few
// students and courses whose pre-selection window is open for two weeks.
func seedDemo(store *memory.Store, cfg *config.Config) {
	now := time.Now().UTC()

	store.PutOrganization(models.Organization{ID: "org-chess", UserID: "u-chess", Name: "Chess Club", TypeName: cfg.Courses.OrganizationTypeName, CreatedAt: now})
	store.PutOrganization(models.Organization{ID: "org-placeholder", UserID: "u-placeholder", Name: cfg.Courses.PlaceholderOrganization, TypeName: cfg.Courses.OrganizationTypeName, CreatedAt: now})

	store.PutPerson(models.Person{ID: "p-ana", UserID: "u-ana", Name: "Ana", Identity: models.PersonIdentityStudent, CreatedAt: now})
	store.PutPerson(models.Person{ID: "p-bo", UserID: "u-bo", Name: "Bo", Identity: models.PersonIdentityStudent, CreatedAt: now})
	store.PutPerson(models.Person{ID: "p-teach", UserID: "u-teach", Name: "Teacher", Identity: models.PersonIdentityTeacher, CreatedAt: now})
	store.AddMember("org-chess", "p-bo")

	window := func(c models.Course) models.Course {
		c.OrganizationID = "org-chess"
		c.Year = cfg.Courses.Year
		c.Semester = cfg.Courses.Semester
		c.StageOneStart = now.Add(-24 * time.Hour)
		c.StageOneEnd = now.Add(14 * 24 * time.Hour)
		c.CreatedAt = now
		return c
	}
	store.PutCourse(window(models.Course{ID: "c-openings", Name: "Openings", Type: models.CourseTypeIntellectual, Teacher: "Teacher", Classroom: "Room 101", Capacity: 20, Introduction: "Opening repertoire for beginners"}))
	store.PutCourse(window(models.Course{ID: "c-simul", Name: "Simultaneous Play", Type: models.CourseTypePhysical, Teacher: "Teacher", Classroom: "Hall", Capacity: 1}))
}
