package sqlinline

const QCreateTasksTable = `--sql f4926e66-e2ef-42a7-a542-3a655800d905
create table if not exists gras_tasks (
    task_id     text primary key,
    position    integer not null,
    task_type   text not null,
    status      text not null,
    payload     jsonb not null,
    submit_time timestamptz,
    updated_at  timestamptz not null default now()
);
`

const QListTasks = `--sql fcc77678-c761-4666-9aa4-c0dcec40b409
select payload
from gras_tasks
order by position asc;
`

const QDeleteAllTasks = `--sql bf69b0ef-b6ab-4d15-bdab-b6edf4940cce
delete from gras_tasks;
`

const QInsertTask = `--sql 10c0f815-3e7a-451d-910e-c9adfe747c18
insert into gras_tasks (task_id, position, task_type, status, payload, submit_time, updated_at)
values ($1, $2, $3, $4, $5, $6, now());
`
