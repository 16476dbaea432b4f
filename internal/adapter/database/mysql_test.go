package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/tenantvault/internal/domain"
)

func TestMySQLDatabase(t *testing.T) {
	Convey("Given a MySQL data store", t, func() {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		So(err, ShouldBeNil)
		defer db.Close()

		store := NewMySQLWithDB(db)
		ctx := context.Background()

		Convey("ReadTable on a tenant scoped table", func() {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `messages` WHERE `organization_id` = ?")).
				WithArgs("tenant-a").
				WillReturnRows(sqlmock.NewRows([]string{"id", "body", "read"}).
					AddRow(int64(1), []byte("hello"), true).
					AddRow(int64(2), []byte("bye"), false))

			rows, err := store.ReadTable(ctx, domain.TableQuery{
				Table:        "messages",
				TenantColumn: "organization_id",
				TenantID:     "tenant-a",
			})

			Convey("It should return rows in column order with text as strings", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)

				first := rows[0]
				So(first.Len(), ShouldEqual, 3)
				So(first.Oldest().Key, ShouldEqual, "id")
				So(first.Newest().Key, ShouldEqual, "read")

				body, _ := first.Get("body")
				So(body, ShouldEqual, "hello")
				id, _ := first.Get("id")
				So(id, ShouldEqual, int64(1))

				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("ReadTable on an unscoped, schema-qualified table", func() {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `app`.`plans`")).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

			rows, err := store.ReadTable(ctx, domain.TableQuery{Table: "app.plans"})

			Convey("It should read the whole table without a filter", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("ReadTable when the query fails", func() {
			mock.ExpectQuery("SELECT").WillReturnError(errors.New("table does not exist"))

			rows, err := store.ReadTable(ctx, domain.TableQuery{Table: "missing"})

			Convey("It should wrap the error with the table name", func() {
				So(rows, ShouldBeNil)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "query missing")
				So(err.Error(), ShouldContainSubstring, "table does not exist")
			})
		})

		Convey("Ping when the server is unreachable", func() {
			mock.ExpectPing().WillReturnError(errors.New("connection refused"))

			err := store.Ping(ctx)

			Convey("It should report a ping failure", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "mysql ping failed")
			})
		})

		Convey("GetType", func() {
			So(store.GetType(), ShouldEqual, "mysql")
		})
	})
}

func TestMySQLIdentifier(t *testing.T) {
	Convey("mysqlIdentifier should escape backticks", t, func() {
		So(mysqlIdentifier("weird`name"), ShouldEqual, "`weird``name`")
		So(mysqlIdentifier("db.tasks"), ShouldEqual, "`db`.`tasks`")
	})
}
