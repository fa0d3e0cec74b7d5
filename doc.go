// Package trellis is an application framework built around a dependency
// injection container and a phased initialization sequence.
//
// # Quick Start
//
// Declare components, usually from init functions:
//
//	type UserRepository struct {
//	    DB *gorm.DB `inject:"DatabaseConnection"`
//	}
//
//	type UserService struct {
//	    Repo *UserRepository `inject:""`        // inject by type
//	    Mail Mailer          `inject:"mailer"`  // inject by identifier
//	}
//
//	func (s *UserService) PostInject(ctx context.Context) error {
//	    return s.Repo.Warmup(ctx)
//	}
//
//	func init() {
//	    trellis.Declare(
//	        trellis.NewComponent[UserRepository](),
//	        trellis.NewComponent[UserService](),
//	        trellis.NewComponent[SMTPMailer](trellis.WithIdentifier("mailer")),
//	    )
//	}
//
// Then build the application from modules and initialize it:
//
//	db, err := gormdb.New(gormdb.Options{Driver: gormdb.DriverSQLite, DSN: "shop.db"})
//	app := trellis.New()
//	err = app.RegisterModules(ctx,
//	    trellis.NewDIModule(),
//	    db,
//	    chiadapter.New(chiadapter.Options{ListenAddr: ":8080"}),
//	)
//	err = app.Init(ctx)
//
// # Components
//
// A component is stored under its identifier when it has one, otherwise
// under its type. Registering a second component under the same key
// replaces the first one. Fields tagged `inject:""` receive the
// component stored under the field type; `inject:"name"` receives the
// component stored under that identifier.
//
// A component implementing PostInjector, or declaring a method with
// WithPostInject, is initialized after injection. Its post-inject method
// runs after the post-inject methods of all its dependencies, and at most
// once.
//
// # Phases
//
// Init runs these phases in order, each one exactly once:
//
//	beforeInit
//	diAfterComponentScan
//	diAfterInject
//	diAfterPostInject
//	contextAvailable
//	controllersAfterScan
//	controllersReady
//	contextReady
//
// Hooks are registered with App.RegisterHook and App.RegisterNamedHook,
// or with RegisterHooks before any App exists. Named hooks run before
// unnamed ones; the first failing hook stops initialization.
//
// # Configuration
//
// The configuration file defaults to resources/config.json; see package
// config for the keys.
//
// # Observability
//
//	app := trellis.New(
//	    trellis.WithLogger(logger),
//	    trellis.WithPrometheus(prometheus.DefaultRegisterer),
//	    trellis.WithTracerProvider(tp),
//	    trellis.WithPhaseObserver(func(p trellis.Phase, d time.Duration, err error) {
//	        log.Printf("%s took %s", p, d)
//	    }),
//	)
//
// # Debug Visualization
//
//	di, _ := app.DI()
//	di.PrintGraph()       // ASCII to stdout
//	di.FprintGraphDOT(w)  // Graphviz DOT
package trellis
