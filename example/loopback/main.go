package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/config"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/core"
	"github.com/hxnet/hxnet/hand"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/settings"
	"github.com/hxnet/hxnet/simulation"
	"github.com/hxnet/hxnet/transport"
	"github.com/sirupsen/logrus"
)

const (
	handName  = "right_hand"
	cupName   = "cup"
	pawn      = authority.PawnID("player")
	stiffness = 50000.0
)

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s <config_dir> [loopback|server|client]\n", os.Args[0])
		os.Exit(1)
	}
	mode := "loopback"
	if len(os.Args) > 2 {
		mode = os.Args[2]
	}

	if err := config.Load(os.Args[1]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}
	log.Level = config.LogLevel()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Warnf("unable to initialise sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	s, err := loadSettings(config.GetString("settingsPath"))
	if err != nil {
		log.Fatal(err)
	}

	if config.GetBool("statsview.enabled") {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(config.GetString("statsview.address")))
		mgr := statsview.New()
		go mgr.Start()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	switch mode {
	case "loopback":
		err = runLoopback(log, s, interrupt)
	case "server":
		err = runServer(log, s, interrupt)
	case "client":
		err = runClient(log, s, interrupt)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func loadSettings(path string) (settings.Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return settings.Settings{}, err
		}
		if err := settings.SaveDefault(path); err != nil {
			return settings.Settings{}, err
		}
	}
	return settings.Load(path)
}

// runLoopback runs a server world and a client world in the same process.
func runLoopback(log *logrus.Logger, s settings.Settings, interrupt <-chan os.Signal) error {
	serverEnd, clientEnd := transport.NewLoopback()
	server, err := newWorld(log, s, serverEnd, true)
	if err != nil {
		return err
	}
	client, err := newWorld(log, s, clientEnd, false)
	if err != nil {
		return err
	}
	return run(interrupt, server, client)
}

func runServer(log *logrus.Logger, s settings.Settings, interrupt <-chan os.Signal) error {
	l, err := transport.ListenKCP(log, config.GetString("transport.listenAddress"), kcpConfig())
	if err != nil {
		return err
	}
	defer l.Close()
	log.Infof("listening on %s", l.Addr())

	fanout := &transport.Fanout{}
	defer fanout.Close()
	go func() {
		for {
			t, err := l.Accept()
			if err != nil {
				return
			}
			log.Infof("client connected")
			fanout.Add(t)
		}
	}()

	w, err := newWorld(log, s, fanout, true)
	if err != nil {
		return err
	}
	return run(interrupt, w)
}

func runClient(log *logrus.Logger, s settings.Settings, interrupt <-chan os.Signal) error {
	t, err := transport.DialKCP(log, config.GetString("transport.listenAddress"), kcpConfig())
	if err != nil {
		return err
	}
	defer t.Close()

	w, err := newWorld(log, s, t, false)
	if err != nil {
		return err
	}
	return run(interrupt, w)
}

func kcpConfig() transport.KCPConfig {
	conf := transport.DefaultKCPConfig()
	conf.UnreliableRate = config.GetFloat64("transport.unreliableRate")
	conf.UnreliableBurst = config.GetInt("transport.unreliableBurst")
	return conf
}

func run(interrupt <-chan os.Signal, worlds ...*world) error {
	interval := config.TickInterval()
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var now float64
	for {
		select {
		case <-interrupt:
			for _, w := range worlds {
				w.log.Infof("stopping after %.2fs, %d grasps active", now, len(w.core.Detector().Grasps()))
			}
			return nil
		case <-ticker.C:
			now += dt
			for _, w := range worlds {
				w.tick(now, dt)
			}
		}
	}
}

// world is one machine's view of the scene: a hand reaching for a cup.
type world struct {
	log       *logrus.Logger
	engine    *simulation.Engine
	core      *core.Core
	hand      *hand.Hand
	transport transport.Transport
	objects   []string
}

func newWorld(log *logrus.Logger, s settings.Settings, t transport.Transport, server bool) (*world, error) {
	engine := simulation.NewEngine(log, simulation.Config{LinearDamping: 0.1})
	if err := addSkeleton(engine); err != nil {
		return nil, err
	}
	if err := engine.AddComponent(cupName, simulation.Body{
		State:      physics.RigidBodyState{Position: mgl64.Vec3{0.2, 0.04, 0}, Orientation: mgl64.QuatIdent()},
		HalfExtent: 0.04,
	}); err != nil {
		return nil, err
	}

	conf := core.DefaultConfig()
	conf.Settings = s
	conf.OnRestartRequired = func(message string) {
		log.Error(message)
	}
	c := core.New(log, engine, renderer{log: log}, conf)

	handConf := hand.DefaultConfig(handName, physics.SideRight, pawn)
	handConf.Server = server
	handConf.LocallyControlled = !server
	if m, ok := authority.ParseMode(config.GetString("authority.mode")); ok {
		handConf.Mode = m
	}
	handConf.ZoneRadius = config.GetFloat64("authority.zoneRadius")
	handConf.ZoneHysteresis = config.GetFloat64("authority.radiusHysteresis")
	handConf.Replication.TargetsFrequency = config.GetFloat64("replication.targetsFrequency")
	handConf.Replication.StateFrequency = config.GetFloat64("replication.stateFrequency")
	handConf.Replication.TargetsBufferDuration = config.GetFloat64("replication.targetsBufferDuration")
	handConf.Replication.StateBufferDuration = config.GetFloat64("replication.stateBufferDuration")

	h, err := hand.New(log, c, t, handConf)
	if err != nil {
		return nil, err
	}
	if err := h.InitPhysics(); err != nil {
		return nil, err
	}
	return &world{log: log, engine: engine, core: c, hand: h, transport: t, objects: []string{cupName}}, nil
}

func addSkeleton(engine *simulation.Engine) error {
	bones := physics.DefaultHandBones()
	bodies := []simulation.Body{{
		Bone:       bones.Palm,
		State:      physics.RigidBodyState{Orientation: mgl64.QuatIdent()},
		HalfExtent: 0.04,
	}}
	for f := physics.FingerThumb; f < physics.FingerCount; f++ {
		for j := physics.JointProximal; j < physics.JointsPerFinger; j++ {
			bodies = append(bodies, simulation.Body{
				Bone: bones.Joints[f][j],
				State: physics.RigidBodyState{
					Position:    mgl64.Vec3{0.05 + 0.025*float64(j), 0.02 * float64(f), 0},
					Orientation: mgl64.QuatIdent(),
				},
				HalfExtent: 0.008,
			})
		}
	}
	return engine.AddComponent(handName, bodies...)
}

// tick runs one frame in the order the engine hooks would fire it.
func (w *world) tick(now, dt float64) {
	w.hand.UpdateTargets(scriptedTargets(now))
	w.hand.TickPrimary(now, dt)
	w.engine.Step(dt)
	for _, c := range w.engine.Contacts(handName, stiffness, dt) {
		w.hand.NotifyHit(hand.Hit{
			Bone:     c.Bone,
			Other:    c.Other,
			Location: c.Location,
			Normal:   c.Normal,
			Impulse:  c.Impulse,
		})
	}
	w.hand.TraceTactors()
	w.core.Tick(dt)
	w.hand.UpdateOverlaps(w.objects, nil)
	w.hand.TickSecondary(now)
	if w.transport == nil {
		return
	}
	for _, ev := range w.transport.Receive() {
		w.hand.Handle(ev)
	}
}

// scriptedTargets reaches towards the cup and curls the fingers around it every four seconds.
func scriptedTargets(now float64) physics.Targets {
	phase := 0.5 - 0.5*math.Cos(now*math.Pi/2)
	t := physics.IdentityTargets()
	t.Middle1Position = mgl64.Vec3{0.05 + 0.1*phase, 0.04, 0}
	curl := mgl64.QuatRotate(phase*math.Pi/3, mgl64.Vec3{0, 1, 0})
	for i := range t.JointOrientations {
		t.JointOrientations[i] = curl
	}
	return t
}

type renderer struct {
	log *logrus.Logger
}

func (r renderer) Render(peripheral contact.PeripheralID, frame contact.PneumaticFrame) error {
	var engaged int
	for _, e := range frame.RetractuatorsEngaged {
		if e {
			engaged++
		}
	}
	r.log.Debugf("peripheral %d: %d tactors, %d retractuators engaged", peripheral, len(frame.TactorHeights), engaged)
	return nil
}
