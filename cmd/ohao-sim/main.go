package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	ohao "github.com/Qervas/ohao-engine"
	"github.com/Qervas/ohao-engine/config"
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/Qervas/ohao-engine/metrics"
	"github.com/Qervas/ohao-engine/stream"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var (
	sceneFile string
	dt        float64
	duration  float64
	frameRate int
	addr      string
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	sleepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ohao-sim",
		Short: "rigid body physics sandbox",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and print a summary",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&sceneFile, "scene", "", "scene file path (yaml)")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "timestep override")
	runCmd.Flags().Float64Var(&duration, "time", 0, "duration override")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with a live terminal view",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&sceneFile, "scene", "", "scene file path (yaml)")
	liveCmd.Flags().IntVar(&frameRate, "fps", 60, "frame rate")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run a scene and stream transforms over websocket",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&sceneFile, "scene", "", "scene file path (yaml)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default scene to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultScene())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadScene() (*config.Scene, error) {
	if sceneFile == "" {
		return config.DefaultScene(), nil
	}
	return config.Load(sceneFile)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	scene, err := loadScene()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dt") {
		scene.TimeStep = dt
	}
	if cmd.Flags().Changed("time") {
		scene.Duration = duration
	}
	if err := scene.Validate(); err != nil {
		return err
	}

	world, err := scene.Build()
	if err != nil {
		return err
	}

	steps := int(scene.Duration / scene.TimeStep)
	energyHistory := make([]float64, 0, steps)
	heightHistory := make([]float64, 0, steps)
	tracked := firstDynamicBody(world)

	world.Start()
	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := world.Step(scene.TimeStep); err != nil {
			return err
		}
		energyHistory = append(energyHistory, metrics.TotalEnergy(world.Bodies, world.Config.Gravity))
		if tracked != nil {
			heightHistory = append(heightHistory, tracked.Position().Y())
		}
	}
	world.Stop()
	elapsed := time.Since(start)

	fmt.Println(headerStyle.Render(strings.ToUpper(scene.Name)))
	fmt.Printf("simulated %.2fs in %v (%d steps)\n\n", scene.Duration, elapsed, steps)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tSHAPE\tPOSITION\tVELOCITY\tSTATE")
	for i, body := range world.Bodies {
		name := fmt.Sprintf("#%d", i)
		if i < len(scene.Bodies) && scene.Bodies[i].Name != "" {
			name = scene.Bodies[i].Name
		}
		state := "awake"
		if body.IsStatic() {
			state = "static"
		} else if body.IsSleeping {
			state = "sleeping"
		}
		pos := body.Position()
		fmt.Fprintf(w, "%s\t%s\t(%.2f, %.2f, %.2f)\t%.3f\t%s\n",
			name, shapeName(body), pos.X(), pos.Y(), pos.Z(), body.Velocity.Len(), state)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	momentum := metrics.TotalMomentum(world.Bodies)
	fmt.Println()
	fmt.Println(labelStyle.Render("Kinetic") + valueStyle.Render(fmt.Sprintf("%.4f J", metrics.KineticEnergy(world.Bodies))))
	fmt.Println(labelStyle.Render("Potential") + valueStyle.Render(fmt.Sprintf("%.4f J", metrics.PotentialEnergy(world.Bodies, world.Config.Gravity))))
	fmt.Println(labelStyle.Render("Momentum") + valueStyle.Render(fmt.Sprintf("(%.3f, %.3f, %.3f) kg·m/s", momentum.X(), momentum.Y(), momentum.Z())))

	if len(energyHistory) > 1 {
		chart := asciigraph.Plot(energyHistory,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("total energy (J)"),
		)
		fmt.Println(graphStyle.Render(chart))
	}
	if len(heightHistory) > 1 {
		chart := asciigraph.Plot(heightHistory,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("tracked body height (m)"),
		)
		fmt.Println(graphStyle.Render(chart))
	}

	return nil
}

func firstDynamicBody(world *ohao.World) *dynamics.RigidBody {
	for _, body := range world.Bodies {
		if !body.IsStatic() {
			return body
		}
	}
	return nil
}

func shapeName(body *dynamics.RigidBody) string {
	switch body.Shape.Type() {
	case dynamics.ShapeTypeSphere:
		return "sphere"
	case dynamics.ShapeTypeBox:
		return "box"
	default:
		return "plane"
	}
}

// ============================================================================
// live view
// ============================================================================

type tickMsg time.Time

type liveModel struct {
	scene         *config.Scene
	world         *ohao.World
	energyHistory []float64
}

func newLiveModel(scene *config.Scene, world *ohao.World) liveModel {
	return liveModel{
		scene:         scene,
		world:         world,
		energyHistory: make([]float64, 0, 600),
	}
}

func (m liveModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(frameRate), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m liveModel) Init() tea.Cmd {
	return m.tick()
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.world.State() == ohao.StateRunning {
				m.world.Pause()
			} else {
				m.world.Resume()
			}
		case "r":
			world, err := m.scene.Build()
			if err == nil {
				world.Start()
				m.world = world
				m.energyHistory = m.energyHistory[:0]
			}
		}
	case tickMsg:
		if m.world.State() == ohao.StateRunning {
			m.world.Step(m.scene.TimeStep)
			m.energyHistory = append(m.energyHistory, metrics.TotalEnergy(m.world.Bodies, m.world.Config.Gravity))
			if len(m.energyHistory) > 600 {
				m.energyHistory = m.energyHistory[1:]
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m liveModel) View() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render(strings.ToUpper(m.scene.Name)) + "\n")
	s.WriteString(fmt.Sprintf("%s  t=%.2fs\n\n", m.world.State(), m.world.Elapsed()))

	for i, body := range m.world.Bodies {
		name := fmt.Sprintf("#%d", i)
		if i < len(m.scene.Bodies) && m.scene.Bodies[i].Name != "" {
			name = m.scene.Bodies[i].Name
		}
		pos := body.Position()
		line := fmt.Sprintf("%-14s %-7s y=%7.3f |v|=%7.3f", name, shapeName(body), pos.Y(), body.Velocity.Len())
		if body.IsSleeping || body.IsStatic() {
			s.WriteString(sleepStyle.Render(line) + "\n")
		} else {
			s.WriteString(valueStyle.Render(line) + "\n")
		}
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(6), asciigraph.Width(60), asciigraph.Caption("total energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(sleepStyle.Render("\nSP:Pause R:Reset Q:Quit"))
	return s.String()
}

func runLive(cmd *cobra.Command, args []string) error {
	scene, err := loadScene()
	if err != nil {
		return err
	}
	world, err := scene.Build()
	if err != nil {
		return err
	}
	world.Start()

	_, err = tea.NewProgram(newLiveModel(scene, world)).Run()
	return err
}

// ============================================================================
// websocket server
// ============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	scene, err := loadScene()
	if err != nil {
		return err
	}
	world, err := scene.Build()
	if err != nil {
		return err
	}
	world.Start()

	server := stream.NewServer()
	http.HandleFunc("/ws", server.Handler)

	go func() {
		ticker := time.NewTicker(time.Duration(scene.TimeStep * float64(time.Second)))
		defer ticker.Stop()
		for range ticker.C {
			if err := world.Step(scene.TimeStep); err != nil {
				log.Println("step error:", err)
				return
			}
			server.Broadcast(stream.Capture(world))
		}
	}()

	fmt.Printf("streaming %q on %s/ws\n", scene.Name, addr)
	return http.ListenAndServe(addr, nil)
}
