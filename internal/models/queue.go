package models

// PlanKind distinguishes unit training from building construction
type PlanKind string

const (
	PlanTrain PlanKind = "train"
	PlanBuild PlanKind = "build"
)

// Plan is a production request handed to a queue
type Plan struct {
	Kind     PlanKind  `json:"kind"`
	Template string    `json:"template"`
	Role     Role      `json:"role,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// UnitTrainingPlan requests one unit of template tagged with role
func UnitTrainingPlan(template string, role Role) Plan {
	return Plan{Kind: PlanTrain, Template: template, Role: role}
}

// BuildingConstructionPlan requests a structure, optionally at a fixed spot
func BuildingConstructionPlan(template string, at *Position) Plan {
	return Plan{Kind: PlanBuild, Template: template, Position: at}
}

// Queue is a production queue owned by the host
type Queue interface {
	AddItem(p Plan)
	TotalLength() int
	CountTotalQueuedUnits() int
}

// QueueName identifies one of the four production queues
type QueueName string

const (
	QueueVillager         QueueName = "villager"
	QueueField            QueueName = "field"
	QueueCivilCentre      QueueName = "civil_centre"
	QueueEconomicBuilding QueueName = "economic_building"
)

// AllQueueNames returns the queue names in a fixed order
func AllQueueNames() []QueueName {
	return []QueueName{QueueVillager, QueueField, QueueCivilCentre, QueueEconomicBuilding}
}

// Queues groups the production queues the economy writes to
type Queues struct {
	Villager         Queue
	Field            Queue
	CivilCentre      Queue
	EconomicBuilding Queue
}

// PlanQueue is a FIFO Queue backed by a slice
type PlanQueue struct {
	Items []Plan `json:"items"`
}

// NewPlanQueue creates an empty queue
func NewPlanQueue() *PlanQueue {
	return &PlanQueue{}
}

// AddItem appends a plan
func (q *PlanQueue) AddItem(p Plan) {
	q.Items = append(q.Items, p)
}

// TotalLength returns the number of pending plans
func (q *PlanQueue) TotalLength() int {
	return len(q.Items)
}

// CountTotalQueuedUnits returns the number of pending training plans
func (q *PlanQueue) CountTotalQueuedUnits() int {
	n := 0
	for _, p := range q.Items {
		if p.Kind == PlanTrain {
			n++
		}
	}
	return n
}

// Pop removes and returns the oldest plan
func (q *PlanQueue) Pop() (Plan, bool) {
	if len(q.Items) == 0 {
		return Plan{}, false
	}
	p := q.Items[0]
	q.Items = q.Items[1:]
	return p, true
}

// Get returns the queue registered under name, nil when unknown
func (q Queues) Get(name QueueName) Queue {
	switch name {
	case QueueVillager:
		return q.Villager
	case QueueField:
		return q.Field
	case QueueCivilCentre:
		return q.CivilCentre
	case QueueEconomicBuilding:
		return q.EconomicBuilding
	}
	return nil
}

// NewPlanQueues creates a Queues value backed by empty PlanQueues
func NewPlanQueues() Queues {
	return Queues{
		Villager:         NewPlanQueue(),
		Field:            NewPlanQueue(),
		CivilCentre:      NewPlanQueue(),
		EconomicBuilding: NewPlanQueue(),
	}
}
