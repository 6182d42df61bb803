package repo

import (
	"errors"
	"testing"

	"github.com/openlar/openlar/models"
	"gorm.io/gorm"
)

func TestSqliteDB_Update(t *testing.T) {
	sdb, err := MockDB()
	if err != nil {
		t.Fatal(err)
	}
	defer sdb.Close()

	err = sdb.Update(func(tx *gorm.DB) error {
		return tx.Save(&models.Notification{ID: "abc", Kind: models.KindShiftChange, Status: models.StatusPending}).Error
	})
	if err != nil {
		t.Error(err)
	}

	var count int64
	err = sdb.View(func(tx *gorm.DB) error {
		return tx.Model(&models.Notification{}).Count(&count).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 notification, got %d", count)
	}

	err = sdb.Update(func(tx *gorm.DB) error {
		if err := tx.Save(&models.Notification{ID: "def", Kind: models.KindShiftChange, Status: models.StatusPending}).Error; err != nil {
			t.Fatal(err)
		}
		return errors.New("atomic update failure")
	})
	if err == nil {
		t.Error("Update function did not return error")
	}

	err = sdb.View(func(tx *gorm.DB) error {
		return tx.Model(&models.Notification{}).Count(&count).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Error("Db update failed to roll back.")
	}
}

func TestSqliteDB_View(t *testing.T) {
	sdb, err := MockDB()
	if err != nil {
		t.Fatal(err)
	}
	defer sdb.Close()

	err = sdb.Update(func(tx *gorm.DB) error {
		return tx.Save(&models.Notification{ID: "abc", Kind: models.KindAppointment, Status: models.StatusPending}).Error
	})
	if err != nil {
		t.Fatal(err)
	}

	err = sdb.View(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.Where("id = ?", "abc").First(&n).Error; err != nil {
			return err
		}
		if n.Kind != models.KindAppointment {
			t.Errorf("Expected kind %s, got %s", models.KindAppointment, n.Kind)
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}
